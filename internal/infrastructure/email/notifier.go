package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"canopy/internal/shared/config"
)

// Notifier sends transactional mail on onboarding milestones.
type Notifier interface {
	SendWelcomeEmail(to, name, tenantName string) error
	SendOnboardingReminderEmail(to, name, step string) error
}

type SMTPNotifier struct {
	cfg    *config.EmailConfig
	dialer *gomail.Dialer
}

func NewSMTPNotifier(cfg *config.EmailConfig) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

// SendWelcomeEmail goes out once onboarding reaches complete.
func (s *SMTPNotifier) SendWelcomeEmail(to, name, tenantName string) error {
	subject := "Welcome to Canopy"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Welcome, %s!</h2>
			<p>Your workspace <strong>%s</strong> is set up and ready to use.</p>
			<p>You can now invite your team and start working.</p>
		</body>
		</html>
	`, name, tenantName)

	plainBody := fmt.Sprintf(`
Welcome, %s!

Your workspace %s is set up and ready to use.

You can now invite your team and start working.
	`, name, tenantName)

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPNotifier) SendOnboardingReminderEmail(to, name, step string) error {
	subject := "Finish Setting Up Your Workspace"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Hi %s,</h2>
			<p>Your workspace setup stopped at the <strong>%s</strong> step.</p>
			<p>Pick up where you left off to start using your workspace.</p>
		</body>
		</html>
	`, name, step)

	plainBody := fmt.Sprintf(`
Hi %s,

Your workspace setup stopped at the %s step.

Pick up where you left off to start using your workspace.
	`, name, step)

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPNotifier) sendEmail(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromAddress, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
