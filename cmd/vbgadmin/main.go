// Command vbgadmin provisions moderator accounts.
//
//	vbgadmin [-config config.yml] set <username>     (password from VBG_ADMIN_PASSWORD or stdin)
//	vbgadmin [-config config.yml] delete <username>
//	vbgadmin [-config config.yml] list
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vbg-space/core/internal/config"
	"github.com/vbg-space/core/internal/database"
	"github.com/vbg-space/core/internal/modules/auth"
)

const passwordEnv = "VBG_ADMIN_PASSWORD"

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to config.yml")
	flag.Parse()

	if err := run(*configPath, flag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vbgadmin: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: vbgadmin [-config path] set|delete|list [username]")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg, true)
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "set":
		if len(args) != 2 {
			return errors.New("usage: vbgadmin set <username>")
		}
		password, err := readPassword(stdin)
		if err != nil {
			return err
		}
		if err := auth.UpsertAdmin(ctx, db, args[1], password, cfg.Auth.BcryptCost); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "admin %q saved\n", strings.TrimSpace(args[1]))
	case "delete":
		if len(args) != 2 {
			return errors.New("usage: vbgadmin delete <username>")
		}
		if err := auth.DeleteAdmin(ctx, db, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "admin %q deleted\n", args[1])
	case "list":
		names, err := auth.ListAdmins(ctx, db)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password required on stdin or in %s", passwordEnv)
	}
	return line, nil
}
