package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

const (
	NoModelsInstalledMessage = "No models installed in Ollama. Try 'ollama pull <model-name>' to install a model."
	modelsTimeoutMessage     = "Request timeout. Make sure Ollama is running and responding."
	modelsFailedMessage      = "Failed to connect to Ollama"
)

type ModelsUseCase struct {
	lister   ports.ModelLister
	settings *SettingsStore
	now      func() time.Time
}

func NewModelsUseCase(lister ports.ModelLister, settings *SettingsStore) *ModelsUseCase {
	return &ModelsUseCase{lister: lister, settings: settings, now: time.Now}
}

// List never fails: an unreachable or empty model server yields an empty list
// and a message the user can act on.
func (uc *ModelsUseCase) List(ctx context.Context) domain.ModelList {
	result := domain.ModelList{Models: []domain.ModelInfo{}, Timestamp: uc.now().UTC()}

	models, err := uc.lister.ListModels(ctx)
	if err != nil {
		slog.Warn("models_list_failed", "error", err)
		result.Error = modelsErrorMessage(err)
		return result
	}
	if len(models) == 0 {
		result.Error = NoModelsInstalledMessage
		return result
	}

	sort.SliceStable(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	result.Models = models
	result.Total = len(models)
	return result
}

// EnsureSelected switches the stored model to the first available one when
// the selected model is not installed. It returns the effective model.
func (uc *ModelsUseCase) EnsureSelected(ctx context.Context, models []domain.ModelInfo) (string, error) {
	settings, err := uc.settings.Settings(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return settings.SelectedModel, nil
	}
	for _, m := range models {
		if m.Name == settings.SelectedModel {
			return settings.SelectedModel, nil
		}
	}

	settings.SelectedModel = models[0].Name
	if _, err := uc.settings.Update(ctx, settings); err != nil {
		return "", err
	}
	slog.Info("selected_model_switched", "model", settings.SelectedModel)
	return settings.SelectedModel, nil
}

func modelsErrorMessage(err error) string {
	if msg := domain.UserMessage(err); msg != "" {
		return msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return modelsTimeoutMessage
	}
	return modelsFailedMessage
}
