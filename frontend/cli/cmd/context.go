package cmd

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/furisto/promptbuilder/backend/analytics"
	"github.com/furisto/promptbuilder/backend/feedback"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/shared"
	"github.com/furisto/promptbuilder/shared/config"
	"github.com/furisto/promptbuilder/shared/keyring"
)

type ContextKey string

const (
	ContextKeyFileSystem      ContextKey = "filesystem"
	ContextKeyUserInfo        ContextKey = "user_info"
	ContextKeyConfigStore     ContextKey = "config_store"
	ContextKeyKeyring         ContextKey = "keyring"
	ContextKeyProviderFactory ContextKey = "provider_factory"
	ContextKeyFeedbackSink    ContextKey = "feedback_sink"
	ContextKeyAnalytics       ContextKey = "analytics"
	ContextKeyMetrics         ContextKey = "metrics"
	ContextKeyGlobalOptions   ContextKey = "global_options"
	ContextKeyDisableFileLogs ContextKey = "disable_file_logs"
)

// ProviderFactory builds the completion provider for a provider kind. The default is
// model.NewProvider.
type ProviderFactory func(ctx context.Context, kind model.ProviderKind, apiKey string, logger *slog.Logger, opts ...model.ProviderOption) (model.CompletionProvider, error)

func getFileSystem(ctx context.Context) *afero.Afero {
	if fs, ok := ctx.Value(ContextKeyFileSystem).(*afero.Afero); ok {
		return fs
	}
	return &afero.Afero{Fs: afero.NewOsFs()}
}

func getUserInfo(ctx context.Context) shared.UserInfo {
	if userInfo, ok := ctx.Value(ContextKeyUserInfo).(shared.UserInfo); ok {
		return userInfo
	}
	return shared.NewDefaultUserInfo(getFileSystem(ctx))
}

func getConfigStore(ctx context.Context) *config.Store {
	if store, ok := ctx.Value(ContextKeyConfigStore).(*config.Store); ok {
		return store
	}
	return nil
}

func setConfigStore(ctx context.Context, store *config.Store) context.Context {
	return context.WithValue(ctx, ContextKeyConfigStore, store)
}

func getKeyring(ctx context.Context) keyring.Provider {
	if provider, ok := ctx.Value(ContextKeyKeyring).(keyring.Provider); ok {
		return provider
	}
	return keyring.NewKeyringProvider()
}

func getProviderFactory(ctx context.Context) ProviderFactory {
	if factory, ok := ctx.Value(ContextKeyProviderFactory).(ProviderFactory); ok {
		return factory
	}
	return model.NewProvider
}

// getFeedbackSink returns a sink injected into the context. When there is none the
// sink is built from the configuration.
func getFeedbackSink(ctx context.Context) feedback.Sink {
	if sink, ok := ctx.Value(ContextKeyFeedbackSink).(feedback.Sink); ok {
		return sink
	}
	return nil
}

func getAnalytics(ctx context.Context) analytics.Enqueuer {
	if client, ok := ctx.Value(ContextKeyAnalytics).(analytics.Enqueuer); ok {
		return client
	}
	return nil
}

func setAnalytics(ctx context.Context, client analytics.Enqueuer) context.Context {
	return context.WithValue(ctx, ContextKeyAnalytics, client)
}

func getMetrics(ctx context.Context) *prometheus.Registry {
	if registry, ok := ctx.Value(ContextKeyMetrics).(*prometheus.Registry); ok {
		return registry
	}
	return nil
}

func setMetrics(ctx context.Context, registry *prometheus.Registry) context.Context {
	return context.WithValue(ctx, ContextKeyMetrics, registry)
}

func setGlobalOptions(ctx context.Context, options *globalOptions) context.Context {
	return context.WithValue(ctx, ContextKeyGlobalOptions, options)
}
