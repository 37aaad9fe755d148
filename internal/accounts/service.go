package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/db"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/logger"
	"github.com/lojafacil/lojas-backend/pkg/mailer"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/tokens"
)

// User-facing messages.
const (
	MsgDuplicateEmail     = "Usuário com este Email já existe."
	MsgDuplicateTaxID     = "Loja com este CNPJ já existe."
	MsgInvalidCredentials = "Email ou senha incorretos."
	MsgUserNotFound       = "Usuário não encontrado."
)

const (
	subjectEmailConfirmation = "Confirmação de E-mail"
	subjectPasswordReset     = "Redefinição de Senha"
)

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	VerifyDummy(password string)
	NeedsRehash(encoded string) bool
}

type sessionManager interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Revoke(ctx context.Context, accessID string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams bundles the collaborators of the account lifecycle.
type ServiceParams struct {
	DB                       *db.Client
	Hasher                   passwordHasher
	Tokens                   *tokens.Generator
	Mailer                   mailer.Sender
	Templates                *mailer.Templates
	Sessions                 sessionManager
	JWTConfig                config.JWTConfig
	BaseURL                  string
	RequireEmailConfirmation bool
	Metrics                  *metrics.AccountMetrics
	Logger                   *logger.Logger
	Now                      func() time.Time
}

// Service implements registration, login, confirmation, password recovery
// and profile edits.
type Service struct {
	db                  *db.Client
	hasher              passwordHasher
	tokens              *tokens.Generator
	sessions            sessionManager
	notifier            *notifier
	jwtCfg              config.JWTConfig
	baseURL             string
	requireConfirmation bool
	metrics             *metrics.AccountMetrics
	logg                *logger.Logger
	now                 func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token generator is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Templates == nil {
		return nil, fmt.Errorf("email templates are required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:                  params.DB,
		hasher:              params.Hasher,
		tokens:              params.Tokens,
		sessions:            params.Sessions,
		notifier:            newNotifier(params.Mailer, params.Templates, params.Metrics, logg, now),
		jwtCfg:              params.JWTConfig,
		baseURL:             strings.TrimRight(params.BaseURL, "/"),
		requireConfirmation: params.RequireEmailConfirmation,
		metrics:             params.Metrics,
		logg:                logg,
		now:                 now,
	}, nil
}

// record counts the event, classifying err by code.
func (s *Service) record(event string, err error) {
	switch {
	case err == nil:
		s.metrics.Inc(event, metrics.OutcomeSuccess)
	case pkgerrors.IsRejection(err):
		s.metrics.Inc(event, metrics.OutcomeRejected)
	default:
		s.metrics.Inc(event, metrics.OutcomeError)
	}
}

func (s *Service) link(path string, userID uuid.UUID, token string) string {
	return fmt.Sprintf("%s/%s/%s/%s", s.baseURL, path, userID.String(), token)
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return id, nil
}
