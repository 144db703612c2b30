package domain

type ImageProvider string

const (
	ImageProviderStableDiffusion ImageProvider = "stable-diffusion"
	ImageProviderOpenAI          ImageProvider = "openai"
	ImageProviderReplicate       ImageProvider = "replicate"
)

type ImageSettings struct {
	Provider           ImageProvider `json:"provider" validate:"omitempty,oneof=stable-diffusion openai replicate"`
	StableDiffusionURL string        `json:"stable_diffusion_url" validate:"omitempty,url"`
	OpenAIAPIKey       string        `json:"openai_api_key"`
	ReplicateAPIKey    string        `json:"replicate_api_key"`
	DefaultSize        string        `json:"default_size"`
	DefaultSteps       int           `json:"default_steps" validate:"gte=0,lte=150"`
}

type ChatSettings struct {
	SelectedModel   string        `json:"selected_model"`
	MaxTokens       int           `json:"max_tokens" validate:"gte=0"`
	ImageGeneration ImageSettings `json:"image_generation"`
}

func DefaultChatSettings() ChatSettings {
	return ChatSettings{
		SelectedModel: "llama3.1:8b",
		MaxTokens:     4096,
		ImageGeneration: ImageSettings{
			Provider:           ImageProviderStableDiffusion,
			StableDiffusionURL: "http://localhost:7860",
			DefaultSize:        "512x512",
			DefaultSteps:       20,
		},
	}
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	SidebarDefaultWidth = 320
	SidebarMinWidth     = 240
	SidebarMaxWidth     = 600
)

// ImageResult references a generated image: a remote URL or a data: URL.
type ImageResult struct {
	ImageURL string        `json:"image_url"`
	Provider ImageProvider `json:"provider"`
}

// ImageRequest asks a provider for one image. Provider and Settings fall back
// to the stored image settings when empty.
type ImageRequest struct {
	Prompt   string         `json:"prompt" validate:"required"`
	Provider ImageProvider  `json:"provider" validate:"omitempty,oneof=stable-diffusion openai replicate"`
	Settings *ImageSettings `json:"settings,omitempty"`
}
