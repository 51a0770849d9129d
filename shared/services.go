package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const AppName = "promptbuilder"

//go:generate mockgen -destination=mocks/user_info_mock.go -package=mocks . UserInfo
type UserInfo interface {
	HomeDir() (string, error)
	ConfigDir() (string, error)
	LogDir() (string, error)
	Cwd() (string, error)
}

type DefaultUserInfo struct {
	fs *afero.Afero
}

func NewDefaultUserInfo(fs *afero.Afero) *DefaultUserInfo {
	return &DefaultUserInfo{fs: fs}
}

func (u *DefaultUserInfo) HomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return homeDir, nil
}

func (u *DefaultUserInfo) ConfigDir() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, AppName)
	if err := u.fs.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

func (u *DefaultUserInfo) LogDir() (string, error) {
	var logDir string
	switch runtime.GOOS {
	case "darwin":
		homeDir, err := u.HomeDir()
		if err != nil {
			return "", err
		}
		logDir = filepath.Join(homeDir, "Library", "Logs", AppName)
	default:
		logDir = filepath.Join(xdg.StateHome, AppName)
	}

	if err := u.fs.MkdirAll(logDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return logDir, nil
}

func (u *DefaultUserInfo) Cwd() (string, error) {
	return os.Getwd()
}

var _ UserInfo = (*DefaultUserInfo)(nil)
