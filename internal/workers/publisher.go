package workers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Youngdong2/ai-meeting-api/internal/integrations/confluence"
	"github.com/Youngdong2/ai-meeting-api/internal/integrations/slack"
	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/repositories/postgres"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
)

// Publisher runs the post-completion side-calls: pushing a finished meeting
// record to Confluence and announcing it on Slack. Both read team-level
// credentials and never touch the processing pipeline.
type Publisher struct {
	Meetings postgres.MeetingRepo
	Teams    postgres.TeamRepo
	AppURL   string
	Logger   *logrus.Logger

	// Injectable for tests.
	NewConfluence func(siteURL, userEmail, apiToken string) *confluence.Client
	NewSlack      func(webhookURL, botToken string) *slack.Client
}

func NewPublisher(meetings postgres.MeetingRepo, teams postgres.TeamRepo, appURL string, log *logrus.Logger) *Publisher {
	return &Publisher{
		Meetings:      meetings,
		Teams:         teams,
		AppURL:        appURL,
		Logger:        log,
		NewConfluence: confluence.NewClient,
		NewSlack:      slack.NewClient,
	}
}

// PublishConfluence creates or updates the Confluence page for a meeting.
// A meeting already published gets its existing page updated; if that page
// was deleted on the Confluence side, a fresh one is created.
func (p *Publisher) PublishConfluence(ctx context.Context, meetingID string) error {
	const op = "Publisher.PublishConfluence"

	m, setting, err := p.load(ctx, meetingID)
	if err != nil {
		return err
	}
	if !setting.ConfluenceConfigured() {
		return utils.E(utils.CodeInvalidArgument, op, "confluence is not configured for this team", nil)
	}

	client := p.NewConfluence(setting.ConfluenceSiteURL, setting.ConfluenceUserEmail, setting.ConfluenceAPIToken)
	title := confluence.PageTitle(m)
	content := confluence.BuildMeetingPage(m, p.author(ctx, m))

	if m.ConfluencePageID != "" {
		existing, err := client.GetPage(ctx, m.ConfluencePageID)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to look up existing page", err)
		}
		if existing != nil {
			page, err := client.UpdatePage(ctx, existing.ID, title, content, existing.Version.Number)
			if err != nil {
				return utils.E(utils.CodeInternal, op, "failed to update confluence page", err)
			}
			return p.Meetings.SetPublication(ctx, m.ID, page.ID, page.URL)
		}
		// page was removed remotely, fall through and recreate
	}

	spaceID, err := client.SpaceIDByKey(ctx, setting.ConfluenceSpaceKey)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to resolve confluence space", err)
	}
	page, err := client.CreatePage(ctx, spaceID, title, content, setting.ConfluenceParentPageID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to create confluence page", err)
	}
	return p.Meetings.SetPublication(ctx, m.ID, page.ID, page.URL)
}

// ShareSlack posts the meeting summary to Slack. An explicit channel wins
// over the team default; a bot token wins over the incoming webhook.
func (p *Publisher) ShareSlack(ctx context.Context, meetingID, channel string) error {
	const op = "Publisher.ShareSlack"

	m, setting, err := p.load(ctx, meetingID)
	if err != nil {
		return err
	}
	if !setting.SlackConfigured() {
		return utils.E(utils.CodeInvalidArgument, op, "slack is not configured for this team", nil)
	}

	client := p.NewSlack(setting.SlackWebhookURL, setting.SlackBotToken)
	message := slack.FormatMeetingMessage(m, p.author(ctx, m), p.AppURL)

	if client.UsesBot() {
		if channel == "" {
			channel = setting.SlackDefaultChannel
		}
		if channel == "" {
			return utils.E(utils.CodeInvalidArgument, op, "no slack channel specified", nil)
		}
		res, err := client.SendBotMessage(ctx, channel, message)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to post slack message", err)
		}
		return p.Meetings.SetSlackShare(ctx, m.ID, res.Channel, res.TS)
	}

	if err := client.SendWebhook(ctx, message); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to send slack webhook", err)
	}
	return p.Meetings.SetSlackShare(ctx, m.ID, "webhook", "")
}

func (p *Publisher) load(ctx context.Context, meetingID string) (*models.Meeting, *models.TeamSetting, error) {
	const op = "Publisher.load"

	m, err := p.Meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, nil, utils.E(utils.CodeNotFound, op, "meeting not found", err)
	}
	setting, err := p.Teams.GetSetting(ctx, m.TeamID)
	if err != nil {
		return nil, nil, utils.E(utils.CodeNotFound, op, "team settings not found", err)
	}
	return m, setting, nil
}

// author is the display name attached to published pages and messages.
// Member profiles live in a separate service, so the team name stands in.
func (p *Publisher) author(ctx context.Context, m *models.Meeting) string {
	if p.Teams == nil {
		return ""
	}
	team, err := p.Teams.GetTeam(ctx, m.TeamID)
	if err != nil {
		return ""
	}
	return team.Name
}
