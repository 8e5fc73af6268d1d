package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template+Data or a pre-rendered Subject/Text/HTML is set.
type EmailJob struct {
	ID       string         `json:"id"`
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "account-activation", "password-reset"
	Data     map[string]any `json:"data,omitempty"`
}

// Message returns the pre-rendered content of the job.
func (j EmailJob) Message() Message {
	return Message{To: j.To, Subject: j.Subject, Text: j.Text, HTML: j.HTML}
}
