// Package config loads the bridge's INI configuration file:
// bot credentials and cadence, the admin identity, and the model catalogue
// section with its per-model prefix configs. A missing file causes the
// loader to write a seed file and return a config-invalid error so the
// operator can fill in credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/steelforge/llmbridge/bridgeerr"
	"github.com/steelforge/llmbridge/catalog"
)

// ModelPrefixSpec is one [models.<prefix>] section, not yet resolved to a
// catalog.ModelConfig (that needs a constructed Tokenizer).
type ModelPrefixSpec struct {
	Prefix         string
	ThinkingPrefix string
	ThinkingSuffix string
	Tokenizer      string
	ContextLimit   *int64
}

// Config is the fully validated, immutable catalogue loaded once at boot.
type Config struct {
	// [bot]
	DiscordAPIKey         string
	BotPrefix             string
	EditDelay             time.Duration
	MaxMessagesForContext int
	SessionDBPath         string
	DefaultSystemPrompt   string
	OllamaBaseURL         string

	// [admin]
	AdminID int64

	// [models]
	DefaultModel    string
	DefaultModelTag string
	ExcludedModels  []string

	// [models.*]
	ModelPrefixes []ModelPrefixSpec
}

// seedAPIKey and seedAdminID are the seed file's obviously-fake
// placeholder values: a config that still carries them verbatim fails
// revalidation rather than booting with a fake admin or credential.
const (
	seedAPIKey  = "your_discord_api_key_here"
	seedAdminID = 12345
)

// Load reads path as an INI file and validates it eagerly. If path does not
// exist, Load writes a seed config to path and returns a ConfigInvalidError
// telling the operator to fill it in; the caller is expected to exit
// non-zero in that case.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if werr := writeSeedConfig(path); werr != nil {
			return nil, fmt.Errorf("write seed config: %w", werr)
		}
		return nil, &bridgeerr.ConfigInvalidError{
			Field:  "path",
			Reason: fmt.Sprintf("no config at %q; a seed config was written there, fill in credentials and restart", path),
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, &bridgeerr.ConfigInvalidError{Field: "file", Reason: err.Error()}
	}

	cfg := fromViper(v)

	specs, err := readModelPrefixSpecs(path)
	if err != nil {
		return nil, &bridgeerr.ConfigInvalidError{Field: "file", Reason: err.Error()}
	}
	cfg.ModelPrefixes = specs

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		DiscordAPIKey:         v.GetString("bot.discord_api_key"),
		BotPrefix:             v.GetString("bot.bot_prefix"),
		EditDelay:             durationFromSeconds(v.GetFloat64("bot.edit_delay_seconds")),
		MaxMessagesForContext: v.GetInt("bot.max_messages_for_context"),
		SessionDBPath:         v.GetString("bot.session_db_path"),
		DefaultSystemPrompt:   v.GetString("bot.default_system_prompt"),
		OllamaBaseURL:         v.GetString("bot.ollama_base_url"),
		AdminID:               v.GetInt64("admin.id"),
		DefaultModel:          v.GetString("models.default_model"),
		DefaultModelTag:       v.GetString("models.default_model_tag"),
	}

	if raw := v.GetString("models.excluded_models"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.ExcludedModels = append(cfg.ExcludedModels, name)
			}
		}
	}

	return cfg
}

const modelSectionPrefix = "models."

// readModelPrefixSpecs walks the [models.*] sections in file order. Viper's
// ini codec hands sections back as a Go map, which would randomize the
// first-match-wins precedence, so the sections are read through ini.v1
// (viper's own INI backend) which keeps declaration order.
func readModelPrefixSpecs(path string) ([]ModelPrefixSpec, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse model sections: %w", err)
	}

	var specs []ModelPrefixSpec
	for _, section := range f.Sections() {
		name := section.Name()
		if !strings.HasPrefix(name, modelSectionPrefix) {
			continue
		}
		spec := ModelPrefixSpec{
			Prefix:         strings.TrimPrefix(name, modelSectionPrefix),
			ThinkingPrefix: section.Key("thinking_prefix").String(),
			ThinkingSuffix: section.Key("thinking_suffix").String(),
			Tokenizer:      section.Key("tokenizer").String(),
		}
		if section.HasKey("context_limit") {
			n, err := section.Key("context_limit").Int64()
			if err != nil {
				return nil, fmt.Errorf("section [%s]: context_limit: %w", name, err)
			}
			spec.ContextLimit = &n
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// validate enforces the eager-validation rules: fail on the first
// violation with a descriptive field and reason.
func validate(cfg *Config) error {
	if cfg.DiscordAPIKey == "" || cfg.DiscordAPIKey == seedAPIKey {
		return &bridgeerr.ConfigInvalidError{Field: "bot.discord_api_key", Reason: "required and must be set to a real credential"}
	}
	if cfg.BotPrefix == "" {
		return &bridgeerr.ConfigInvalidError{Field: "bot.bot_prefix", Reason: "must not be empty"}
	}
	if cfg.EditDelay <= 0 {
		return &bridgeerr.ConfigInvalidError{Field: "bot.edit_delay_seconds", Reason: "must be > 0"}
	}
	if cfg.MaxMessagesForContext < 0 {
		return &bridgeerr.ConfigInvalidError{Field: "bot.max_messages_for_context", Reason: "must be >= 0"}
	}
	if cfg.SessionDBPath == "" {
		return &bridgeerr.ConfigInvalidError{Field: "bot.session_db_path", Reason: "must not be empty"}
	}
	if cfg.AdminID == 0 || cfg.AdminID == seedAdminID {
		return &bridgeerr.ConfigInvalidError{Field: "admin.id", Reason: "required and must be set to a real user id"}
	}
	if cfg.DefaultModel == "" {
		return &bridgeerr.ConfigInvalidError{Field: "models.default_model", Reason: "required"}
	}

	found := false
	for _, spec := range cfg.ModelPrefixes {
		if spec.Prefix == cfg.DefaultModel {
			found = true
		}
		hasPrefix := spec.ThinkingPrefix != ""
		hasSuffix := spec.ThinkingSuffix != ""
		if hasPrefix != hasSuffix {
			return &bridgeerr.ConfigInvalidError{
				Field:  fmt.Sprintf("models.%s", spec.Prefix),
				Reason: "thinking_prefix and thinking_suffix must both be present or both absent",
			}
		}
		if spec.Tokenizer == "" {
			return &bridgeerr.ConfigInvalidError{Field: fmt.Sprintf("models.%s.tokenizer", spec.Prefix), Reason: "required"}
		}
	}
	if !found {
		return &bridgeerr.ConfigInvalidError{Field: "models.default_model", Reason: fmt.Sprintf("must match a configured [models.%s] section", cfg.DefaultModel)}
	}
	return nil
}

// BuildPrefixConfigs resolves each ModelPrefixSpec into a catalog.PrefixConfig
// bound to a real Tokenizer, preserving declaration order ("first match
// wins").
func BuildPrefixConfigs(specs []ModelPrefixSpec) ([]catalog.PrefixConfig, error) {
	out := make([]catalog.PrefixConfig, 0, len(specs))
	for _, spec := range specs {
		tok, err := catalog.NewTiktokenTokenizer(spec.Tokenizer)
		if err != nil {
			return nil, fmt.Errorf("model prefix %q: %w", spec.Prefix, err)
		}
		out = append(out, catalog.PrefixConfig{
			Prefix: spec.Prefix,
			Config: &catalog.ModelConfig{
				ThinkingPrefix: spec.ThinkingPrefix,
				ThinkingSuffix: spec.ThinkingSuffix,
				Tokenizer:      tok,
				ContextLimit:   spec.ContextLimit,
			},
		})
	}
	return out, nil
}

// writeSeedConfig writes a template INI file with obviously fake values, the
// way the source's create_example_config does.
func writeSeedConfig(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	seed := fmt.Sprintf(`[bot]
discord_api_key = %s
bot_prefix = $
edit_delay_seconds = 0.5
max_messages_for_context = 20
session_db_path = ./sessions.db
default_system_prompt =
ollama_base_url =

[admin]
id = %d

[models]
default_model = qwen3-8b
default_model_tag = latest
excluded_models =

[models.qwen3-8b]
thinking_prefix = <think>
thinking_suffix = </think>
tokenizer = cl100k_base
`, seedAPIKey, seedAdminID)

	return os.WriteFile(path, []byte(seed), 0o644)
}
