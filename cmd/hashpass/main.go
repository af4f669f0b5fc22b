// Command hashpass prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	echo -n 'password' | go run ./cmd/hashpass
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Dosada05/tournament-bot/services"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		logger.Error("failed to read password from stdin", slog.Any("error", err))
		os.Exit(1)
	}

	hash, err := services.HashPassword(strings.TrimRight(password, "\r\n"))
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(hash)
}
