package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/taskcollector/internal/tasks"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Tasks  TasksConfig       `yaml:"tasks"`
	Watch  WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Tasks.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Empty mode means disabled.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TasksConfig holds the task vocabulary and log section settings.
type TasksConfig struct {
	IncompleteTaskValues        string `yaml:"incomplete_task_values"`
	SupportCanceledTasks        bool   `yaml:"support_canceled_tasks"`
	OnlyLowercaseX              bool   `yaml:"only_lowercase_x"`
	RemoveExpression            string `yaml:"remove_expression"`
	AppendDateFormat            string `yaml:"append_date_format"`
	CompletedAreaHeader         string `yaml:"completed_area_header"`
	CompletedAreaRemoveCheckbox bool   `yaml:"completed_area_remove_checkbox"`

	RightClickComplete  bool `yaml:"right_click_complete"`
	RightClickMark      bool `yaml:"right_click_mark"`
	RightClickMove      bool `yaml:"right_click_move"`
	RightClickResetTask bool `yaml:"right_click_reset_task"`
	RightClickResetAll  bool `yaml:"right_click_reset_all"`
	RightClickToggleAll bool `yaml:"right_click_toggle_all"`
}

// Validate validates the task settings. An empty heading is replaced with
// the default one.
func (c *TasksConfig) Validate() error {
	if strings.TrimSpace(c.CompletedAreaHeader) == "" {
		c.CompletedAreaHeader = tasks.DefaultHeading
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.IncompleteTaskValues, validation.By(c.disjointMarks)),
		validation.Field(&c.RemoveExpression, validation.By(compilesAsRegexp)),
		validation.Field(&c.CompletedAreaHeader, validation.Required, validation.RuneLength(1, 200)),
	)
}

// disjointMarks rejects incomplete marks that are also complete or
// canceled marks.
func (c *TasksConfig) disjointMarks(value any) error {
	marks, _ := value.(string)
	completed := "x"
	if !c.OnlyLowercaseX {
		completed += "X"
	}
	if c.SupportCanceledTasks {
		completed += "-"
	}
	if i := strings.IndexAny(marks, completed); i >= 0 {
		return fmt.Errorf("mark %q is already a completed mark", marks[i:i+1])
	}
	return nil
}

func compilesAsRegexp(value any) error {
	expr, _ := value.(string)
	if expr == "" {
		return nil
	}
	if _, err := regexp.Compile(expr); err != nil {
		return errors.New("must be a valid regular expression")
	}
	return nil
}

// Settings converts the configuration into engine settings.
func (c *TasksConfig) Settings() tasks.Settings {
	return tasks.Settings{
		IncompleteTaskValues:        c.IncompleteTaskValues,
		SupportCanceledTasks:        c.SupportCanceledTasks,
		OnlyLowercaseX:              c.OnlyLowercaseX,
		RemoveExpression:            c.RemoveExpression,
		AppendDateFormat:            c.AppendDateFormat,
		CompletedAreaHeader:         c.CompletedAreaHeader,
		CompletedAreaRemoveCheckbox: c.CompletedAreaRemoveCheckbox,
		ContextMenu: tasks.ContextMenu{
			Complete:  c.RightClickComplete,
			Mark:      c.RightClickMark,
			Move:      c.RightClickMove,
			ResetTask: c.RightClickResetTask,
			ResetAll:  c.RightClickResetAll,
			ToggleAll: c.RightClickToggleAll,
		},
	}
}

// WatchConfig controls the vault watcher.
type WatchConfig struct {
	// AutoMove moves completed tasks into the log section whenever a
	// document changes on disk.
	AutoMove bool `yaml:"auto_move"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./taskcollector.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tasks: TasksConfig{
			IncompleteTaskValues: " ",
			CompletedAreaHeader:  tasks.DefaultHeading,
		},
	}
}
