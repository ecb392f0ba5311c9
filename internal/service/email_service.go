package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"tingxie/internal/drill"
)

// reportHistoryLimit caps how many attempts a session report lists
const reportHistoryLimit = 20

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends drill session reports via Amazon SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
}

// NewEmailService creates a new email service. Without a sender address the
// service is disabled and silently skips every send.
func NewEmailService(awsRegion, fromEmail, fromName string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From Email: %s", fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendSessionReport emails a summary of a drill session
func (s *EmailService) SendSessionReport(ctx context.Context, toEmail, listName string, snap drill.Snapshot) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): session report to %s", toEmail)
		return nil
	}
	if toEmail == "" {
		return fmt.Errorf("no report recipient configured")
	}

	subject := fmt.Sprintf("聽寫練習報告：%s（正確率 %s%%）", listName, snap.AccuracyText)
	htmlBody, textBody := renderSessionReport(listName, snap)

	if s.debug {
		log.Printf("[DEBUG] Sending session report: subject=%s, to=%s, html=%d bytes",
			subject, toEmail, len(htmlBody))
	}

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func renderSessionReport(listName string, snap drill.Snapshot) (string, string) {
	var h, t strings.Builder

	h.WriteString(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: sans-serif; line-height: 1.6; color: #333; }
		table { border-collapse: collapse; }
		td, th { border: 1px solid #ddd; padding: 4px 10px; text-align: center; }
		.wrong { color: #c0392b; }
	</style>
</head>
<body>
`)
	fmt.Fprintf(&h, "<h1>%s</h1>\n", html.EscapeString(listName))
	fmt.Fprintf(&h, "<p>答對 %d 次，答錯 %d 次，正確率 %s%%</p>\n", snap.Correct, snap.Wrong, snap.AccuracyText)

	fmt.Fprintf(&t, "%s\n\n答對 %d 次，答錯 %d 次，正確率 %s%%\n\n", listName, snap.Correct, snap.Wrong, snap.AccuracyText)

	h.WriteString("<table>\n<tr><th>#</th><th>詞語</th><th>答對</th><th>答錯</th></tr>\n")
	for i, word := range snap.Words {
		stats := snap.Stats[i]
		class := ""
		if stats.Wrong > 0 {
			class = ` class="wrong"`
		}
		fmt.Fprintf(&h, "<tr%s><td>%d</td><td>%s</td><td>%d</td><td>%d</td></tr>\n",
			class, i+1, html.EscapeString(word), stats.Correct, stats.Wrong)
		fmt.Fprintf(&t, "%2d. %s  ✓%d ✗%d\n", i+1, word, stats.Correct, stats.Wrong)
	}
	h.WriteString("</table>\n")

	if len(snap.WrongQueue) > 0 {
		pending := make([]string, len(snap.WrongQueue))
		for i, idx := range snap.WrongQueue {
			pending[i] = snap.Words[idx]
		}
		fmt.Fprintf(&h, "<p>待複習：%s</p>\n", html.EscapeString(strings.Join(pending, "、")))
		fmt.Fprintf(&t, "\n待複習：%s\n", strings.Join(pending, "、"))
	}

	if len(snap.Attempts) > 0 {
		h.WriteString("<h2>最近作答</h2>\n<ul>\n")
		t.WriteString("\n最近作答\n")
		for i, a := range snap.Attempts {
			if i == reportHistoryLimit {
				break
			}
			mark := "✓"
			if a.Verdict == drill.Wrong {
				mark = "✗"
			}
			fmt.Fprintf(&h, "<li>%s 第 %d 題 %s → %s</li>\n",
				mark, a.QuestionNumber(), html.EscapeString(a.Word), html.EscapeString(a.Submitted))
			fmt.Fprintf(&t, "%s 第 %d 題 %s → %s\n", mark, a.QuestionNumber(), a.Word, a.Submitted)
		}
		h.WriteString("</ul>\n")
	}

	h.WriteString("</body>\n</html>\n")
	return h.String(), t.String()
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
		if s.debug {
			log.Printf("[DEBUG] SES SendEmail failed: %v", err)
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
