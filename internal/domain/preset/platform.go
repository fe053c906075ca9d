package preset

import (
	"os"
	"runtime"
)

// Platform describes the shell a plain terminal session should run.
type Platform struct {
	DefaultShell     string   `json:"defaultShell"`
	DefaultShellArgs []string `json:"defaultShellArgs"`
	HomeDir          string   `json:"homeDir"`
	OS               string   `json:"os"`
}

// PlatformDefaults reports the login shell for this host.
func PlatformDefaults() Platform {
	home, _ := os.UserHomeDir()

	shell := os.Getenv("SHELL")
	args := []string{"-l"}
	osName := runtime.GOOS

	switch runtime.GOOS {
	case "windows":
		shell, args = "cmd.exe", []string{"/k"}
	case "darwin":
		osName = "macos"
		if shell == "" {
			shell = "/bin/zsh"
		}
	default:
		if shell == "" {
			shell = "/bin/bash"
		}
	}

	return Platform{
		DefaultShell:     shell,
		DefaultShellArgs: args,
		HomeDir:          home,
		OS:               osName,
	}
}
