package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/go-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

// legacyTemplates maps names still emitted by older producers.
var legacyTemplates = map[string]string{
	"verify_email":       mailtpl.AccountActivation,
	"account_activation": mailtpl.AccountActivation,
	"forgot_password":    mailtpl.PasswordReset,
	"password_reset":     mailtpl.PasswordReset,
}

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

func MapLegacyTemplate(job *mailer.EmailJob) {
	name := strings.ToLower(strings.TrimSpace(job.Template))
	if mapped, ok := legacyTemplates[name]; ok {
		name = mapped
	}
	job.Template = name
	if job.Template == "" {
		return
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Type"] = job.Template
	}
}
