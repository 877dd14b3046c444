package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService sends notifications through Amazon SES. When no sender
// address is configured it runs disabled and every send is a logged no-op.
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendTaskSubmittedEmail notifies a parent that a child submitted a task
// for review
func (s *EmailService) SendTaskSubmittedEmail(ctx context.Context, toEmail, toName, childName, taskTitle string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): task submitted to %s", toEmail)
		return nil
	}

	reviewLink := s.appBaseURL + "/parent/review"
	subject := fmt.Sprintf("%s finished a task", childName)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>%s finished a task</h2>
		<p>Hi %s,</p>
		<p><strong>%s</strong> marked <strong>%s</strong> as done and is waiting for your review.</p>
		<p><a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px;">Review now</a></p>
		<p style="font-size: 12px; color: #666;">This is an automated email from Task For Time. Please do not reply.</p>
	</div>
</body>
</html>
`, childName, toName, childName, taskTitle, reviewLink)

	textBody := fmt.Sprintf(`Hi %s,

%s marked "%s" as done and is waiting for your review.

Review now: %s

---
This is an automated email from Task For Time. Please do not reply.
`, toName, childName, taskTitle, reviewLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// DailySummaryLine is one child's row in the daily summary email
type DailySummaryLine struct {
	ChildName      string
	CompletedToday int
	PendingReview  int
	BalanceMinutes int
}

// SendDailySummaryEmail sends a parent the family's end-of-day digest
func (s *EmailService) SendDailySummaryEmail(ctx context.Context, toEmail, toName string, lines []DailySummaryLine) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): daily summary to %s", toEmail)
		return nil
	}
	if len(lines) == 0 {
		return nil
	}

	subject := "Your family's day in Task For Time"

	var htmlRows, textRows strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&htmlRows,
			"<tr><td style=\"padding: 8px;\">%s</td><td style=\"padding: 8px; text-align: center;\">%d</td><td style=\"padding: 8px; text-align: center;\">%d</td><td style=\"padding: 8px; text-align: center;\">%d min</td></tr>\n",
			line.ChildName, line.CompletedToday, line.PendingReview, line.BalanceMinutes)
		fmt.Fprintf(&textRows, "- %s: %d completed, %d waiting for review, %d minutes banked\n",
			line.ChildName, line.CompletedToday, line.PendingReview, line.BalanceMinutes)
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Today's summary</h2>
		<p>Hi %s, here is how the family did today:</p>
		<table style="width: 100%%; border-collapse: collapse;">
			<tr style="background-color: #f0f0f0;"><th style="padding: 8px; text-align: left;">Child</th><th style="padding: 8px;">Completed</th><th style="padding: 8px;">Waiting</th><th style="padding: 8px;">Time bank</th></tr>
			%s
		</table>
		<p><a href="%s/parent/home" style="display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px;">Open dashboard</a></p>
		<p style="font-size: 12px; color: #666;">This is an automated email from Task For Time. Please do not reply.</p>
	</div>
</body>
</html>
`, toName, htmlRows.String(), s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s, here is how the family did today:

%s
Open dashboard: %s/parent/home

---
This is an automated email from Task For Time. Please do not reply.
`, toName, textRows.String(), s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}
	log.Printf("Email sent: to=%s, subject=%s", toEmail, subject)
	return nil
}
