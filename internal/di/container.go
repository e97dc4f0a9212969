// Package di provides dependency injection configuration for the
// Shelfmark server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/auth"
	"github.com/shelfmark/shelfmark-server/internal/catalog/openlibrary"
	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/di/providers"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/mail"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Catalog and mail
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideMailer)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideReviewService)
	do.Provide(injector, providers.ProvideRecommendationService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is
// running. Invocation order triggers lazy construction top-down.
func Bootstrap(injector *do.RootScope) error {
	invocations := []func() error{
		func() error { _, err := do.Invoke[*config.Config](injector); return err },
		func() error { _, err := do.Invoke[*logger.Logger](injector); return err },
		func() error { _, err := do.Invoke[providers.AuthKey](injector); return err },
		func() error { _, err := do.Invoke[*validation.Validator](injector); return err },
		func() error { _, err := do.Invoke[*providers.StoreHandle](injector); return err },
		func() error { _, err := do.Invoke[*openlibrary.Client](injector); return err },
		func() error { _, err := do.Invoke[mail.Mailer](injector); return err },
		func() error { _, err := do.Invoke[*auth.TokenService](injector); return err },
		func() error { _, err := do.Invoke[*service.AuthService](injector); return err },
		func() error { _, err := do.Invoke[*service.LibraryService](injector); return err },
		func() error { _, err := do.Invoke[*service.ReviewService](injector); return err },
		func() error { _, err := do.Invoke[*service.RecommendationService](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
	}

	for _, invoke := range invocations {
		if err := invoke(); err != nil {
			return err
		}
	}
	return nil
}
