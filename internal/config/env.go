package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvChatID   = "CHAT_ID"
	EnvAPIKey   = "RAPIDAPI_KEY"
)

var ErrMissingSecret = errors.New("missing required secret")

// Secrets are the process credentials. They come from the environment only
// and are never part of the reloadable file config.
type Secrets struct {
	BotToken string
	ChatID   int64
	APIKey   string
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// SecretsFromEnv reads and checks all secrets, reporting every missing or
// malformed one at once.
func SecretsFromEnv(getenv func(string) string) (Secrets, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var (
		s    Secrets
		errs []error
	)
	s.BotToken = strings.TrimSpace(getenv(EnvBotToken))
	if s.BotToken == "" {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSecret, EnvBotToken))
	}
	s.APIKey = strings.TrimSpace(getenv(EnvAPIKey))
	if s.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSecret, EnvAPIKey))
	}
	rawChat := strings.TrimSpace(getenv(EnvChatID))
	if rawChat == "" {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSecret, EnvChatID))
	} else if id, err := strconv.ParseInt(rawChat, 10, 64); err != nil || id == 0 {
		errs = append(errs, fmt.Errorf("%s: invalid chat id %q (want a numeric Telegram chat id)", EnvChatID, rawChat))
	} else {
		s.ChatID = id
	}
	if err := errors.Join(errs...); err != nil {
		return Secrets{}, err
	}
	return s, nil
}
