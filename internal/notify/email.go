package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/quillhub/quillhub/internal/pkg/logger"
	"github.com/quillhub/quillhub/internal/service/newsletter"
)

// Default liquid templates used when the config provides none.
const (
	defaultSubjectTemplate = "New issue of {{ newsletter }}"

	defaultBodyTemplate = `<html><body>
<p>A new issue of <strong>{{ newsletter }}</strong> has been announced by {{ publisher }}.</p>
{% if summary != "" %}<p>{{ summary }}</p>{% endif %}
<p>Read it at: {{ page_ref }}</p>
</body></html>`
)

// RecipientResolver yields the email addresses that should receive an
// announcement for a newsletter.
type RecipientResolver interface {
	Recipients(ctx context.Context, newsletterID int64) ([]string, error)
}

// SESConfig holds the settings for the SESv2 email dispatcher.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	FromEmail       string `yaml:"from_email"`
	FromName        string `yaml:"from_name"`
	SubjectTemplate string `yaml:"subject_template"`
	BodyTemplate    string `yaml:"body_template"`
}

// sesAPI is the slice of the SESv2 client the dispatcher uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailDispatcher sends issue announcements to subscribers over SESv2.
type EmailDispatcher struct {
	client      sesAPI
	resolver    RecipientResolver
	engine      *liquid.Engine
	from        string
	subjectTmpl string
	bodyTmpl    string
}

// NewEmailDispatcher builds a dispatcher backed by a real SESv2 client.
func NewEmailDispatcher(ctx context.Context, cfg SESConfig, resolver RecipientResolver) (*EmailDispatcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	d := newEmailDispatcher(sesv2.NewFromConfig(awsCfg), cfg, resolver)
	return d, nil
}

func newEmailDispatcher(client sesAPI, cfg SESConfig, resolver RecipientResolver) *EmailDispatcher {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	subjectTmpl := cfg.SubjectTemplate
	if subjectTmpl == "" {
		subjectTmpl = defaultSubjectTemplate
	}
	bodyTmpl := cfg.BodyTemplate
	if bodyTmpl == "" {
		bodyTmpl = defaultBodyTemplate
	}
	return &EmailDispatcher{
		client:      client,
		resolver:    resolver,
		engine:      liquid.NewEngine(),
		from:        from,
		subjectTmpl: subjectTmpl,
		bodyTmpl:    bodyTmpl,
	}
}

// DispatchIssueAnnounced emails every resolved subscriber. Individual
// send failures are logged and do not stop the remaining sends.
func (d *EmailDispatcher) DispatchIssueAnnounced(ctx context.Context, ann newsletter.IssueAnnouncement) {
	recipients, err := d.resolver.Recipients(ctx, ann.NewsletterID)
	if err != nil {
		log.Printf("[notify] resolve recipients for newsletter %d: %v", ann.NewsletterID, err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	bindings := liquid.Bindings{
		"newsletter": ann.NewsletterName,
		"page_ref":   ann.PageRef,
		"summary":    ann.Summary,
		"publisher":  ann.Actor,
		"issue_id":   ann.IssueID,
	}

	subject, err := d.engine.ParseAndRenderString(d.subjectTmpl, bindings)
	if err != nil {
		log.Printf("[notify] render subject template: %v", err)
		return
	}
	html, err := d.engine.ParseAndRenderString(d.bodyTmpl, bindings)
	if err != nil {
		log.Printf("[notify] render body template: %v", err)
		return
	}
	text := fmt.Sprintf("A new issue of %s has been announced by %s.\n\n%s\n\nRead it at: %s\n",
		ann.NewsletterName, ann.Actor, ann.Summary, ann.PageRef)

	sent := 0
	for _, to := range recipients {
		input := &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(d.from),
			Destination: &types.Destination{
				ToAddresses: []string{to},
			},
			Content: &types.EmailContent{
				Simple: &types.Message{
					Subject: &types.Content{
						Data:    aws.String(subject),
						Charset: aws.String("UTF-8"),
					},
					Body: &types.Body{
						Html: &types.Content{
							Data:    aws.String(html),
							Charset: aws.String("UTF-8"),
						},
						Text: &types.Content{
							Data:    aws.String(strings.TrimSpace(text)),
							Charset: aws.String("UTF-8"),
						},
					},
				},
			},
		}
		if _, err := d.client.SendEmail(ctx, input); err != nil {
			log.Printf("[notify] send to %s failed: %v", logger.RedactEmail(to), err)
			continue
		}
		sent++
	}
	log.Printf("[notify] issue %d of %q: emailed %d/%d subscribers",
		ann.IssueID, ann.NewsletterName, sent, len(recipients))
}

// SubscriberRecipients resolves recipients from a membership store,
// keeping only subscriber IDs that look like email addresses.
type SubscriberRecipients struct {
	members SubscriberLister
}

// SubscriberLister is satisfied by membership.Store.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context, newsletterID int64, limit, offset int) ([]string, error)
}

// NewSubscriberRecipients wraps a membership store as a RecipientResolver.
func NewSubscriberRecipients(members SubscriberLister) *SubscriberRecipients {
	return &SubscriberRecipients{members: members}
}

// Recipients lists subscriber IDs and keeps the email-shaped ones.
func (r *SubscriberRecipients) Recipients(ctx context.Context, newsletterID int64) ([]string, error) {
	ids, err := r.members.ListSubscribers(ctx, newsletterID, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.Count(id, "@") == 1 && !strings.HasPrefix(id, "@") && !strings.HasSuffix(id, "@") {
			out = append(out, id)
		}
	}
	return out, nil
}
