package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/mail"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCatalogClient provides the Open Library client.
func ProvideCatalogClient(i do.Injector) (*openlibrary.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return openlibrary.NewClient(openlibrary.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		CoverBaseURL:   cfg.Catalog.CoverBaseURL,
		SearchTimeout:  cfg.Catalog.SearchTimeout,
		SuggestTimeout: cfg.Catalog.SuggestTimeout,
	}, log.Logger), nil
}

// ProvideMailer provides the reset-mail sender. Without SMTP settings
// the server still runs; reset links are only logged.
func ProvideMailer(i do.Injector) (mail.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.MailConfigured() {
		log.Warn("SMTP not configured, password reset links will be logged only")
		return mail.NewNoopMailer(log.Logger), nil
	}

	return mail.NewSMTPMailer(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, log.Logger), nil
}

// ProvideAuthService provides the account service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	v := do.MustInvoke[*validation.Validator](i)
	mailer := do.MustInvoke[mail.Mailer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(
		storeHandle.Store,
		tokens,
		v,
		mailer,
		log.Logger,
		cfg.Auth.ResetTokenDuration,
		cfg.Mail.FrontendURL,
	), nil
}

// ProvideLibraryService provides catalog search and the personal library.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*openlibrary.Client](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, catalog, v, log.Logger), nil
}

// ProvideReviewService provides the review service.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReviewService(storeHandle.Store, v, log.Logger), nil
}

// ProvideRecommendationService provides the recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*openlibrary.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecommendationService(storeHandle.Store, catalog, log.Logger), nil
}
