package accounts

import (
	"context"
	"time"

	"github.com/lojafacil/lojas-backend/pkg/db/models"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/logger"
	"github.com/lojafacil/lojas-backend/pkg/mailer"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
)

// notifier renders and delivers account emails synchronously.
type notifier struct {
	sender    mailer.Sender
	templates *mailer.Templates
	metrics   *metrics.AccountMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func newNotifier(sender mailer.Sender, templates *mailer.Templates, m *metrics.AccountMetrics, logg *logger.Logger, now func() time.Time) *notifier {
	return &notifier{sender: sender, templates: templates, metrics: m, logg: logg, now: now}
}

func (n *notifier) sendConfirmation(ctx context.Context, user *models.User, url string) error {
	return n.send(ctx, user, subjectEmailConfirmation, mailer.TemplateEmailConfirmation, url)
}

func (n *notifier) sendPasswordReset(ctx context.Context, user *models.User, url string) error {
	return n.send(ctx, user, subjectPasswordReset, mailer.TemplatePasswordReset, url)
}

func (n *notifier) send(ctx context.Context, user *models.User, subject, template, url string) error {
	body, err := n.templates.Render(template, mailer.TemplateData{
		ClientName: user.Name,
		ActionURL:  url,
		Year:       n.now().Year(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render email")
	}

	start := time.Now()
	err = n.sender.Send(ctx, mailer.Message{
		To:      []string{user.Email},
		Subject: subject,
		HTML:    body,
	})
	n.metrics.ObserveMail(template, err, time.Since(start))
	if err != nil {
		logCtx := n.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "template": template})
		n.logg.Error(logCtx, "accounts.mail.failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	return nil
}
