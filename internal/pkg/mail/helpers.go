package mail

import (
	"github.com/thekandidedit/core/internal/config"
)

// BuildMailConfig constructs a mail.Config from the application config.
func BuildMailConfig(cfg *config.AppConfig) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		Enable:    cfg.MailOptions.Enable,
		Host:      cfg.MailOptions.Host,
		Port:      cfg.MailOptions.Port,
		User:      cfg.MailOptions.User,
		Pass:      cfg.MailOptions.Pass,
		From:      cfg.MailOptions.From,
		ReplyTo:   cfg.MailOptions.ReplyTo,
		UseResend: cfg.MailOptions.UseResend,
		ResendKey: cfg.MailOptions.ResendKey,
	}
}
