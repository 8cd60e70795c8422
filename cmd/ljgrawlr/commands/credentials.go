package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	usernameEnv = "LJ_USERNAME"
	passwordEnv = "LJ_PASSWORD"
)

var errNoCredentials = errors.New("login requires credentials: set " + usernameEnv + " and " + passwordEnv + " or run in a terminal")

// credentials reads the login from the environment and prompts on the
// terminal for whatever is missing. The password is never echoed.
func credentials(in *os.File, out io.Writer, getenv func(string) string) (string, string, error) {
	username := strings.TrimSpace(getenv(usernameEnv))
	password := getenv(passwordEnv)

	if username != "" && password != "" {
		return username, password, nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", "", errNoCredentials
	}

	if username == "" {
		fmt.Fprint(out, "Username: ")

		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}

	if password == "" {
		fmt.Fprint(out, "Password: ")

		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(b)
	}

	if username == "" || password == "" {
		return "", "", errNoCredentials
	}

	return username, password, nil
}
