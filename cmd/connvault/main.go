// Command connvault is a thin, non-interactive front end over the credential
// vault: it creates, edits, deletes, lists and exports named connections.
// All values arrive via flags; the project identifier comes from the
// environment (CONNVAULT_PROJECT_ID).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bdds-tools/connvault/internal/adapter/driven/hostid"
	"github.com/bdds-tools/connvault/internal/adapter/driven/inifile"
	"github.com/bdds-tools/connvault/internal/application"
	"github.com/bdds-tools/connvault/internal/config"
	"github.com/bdds-tools/connvault/internal/domain/model"
	"github.com/bdds-tools/connvault/internal/domain/port/driven"
	"github.com/bdds-tools/connvault/internal/secrets"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("connvault", flag.ContinueOnError)
	create := fs.Bool("create", false, "create a new connection")
	edit := fs.Bool("edit", false, "edit an existing connection")
	remove := fs.Bool("delete", false, "delete an existing connection")
	list := fs.Bool("list", false, "list all connections")
	export := fs.Bool("export", false, "export connections to a zip archive")

	printCreds := fs.Bool("print-creds", false, "include decrypted credentials with -list")
	name := fs.String("name", "", "connection name ('*' selects all connections for -export)")
	resourceType := fs.String("resource-type", "", "credential type: dsn or url (default from CONNVAULT_RESOURCE_TYPE)")
	username := fs.String("username", "", "connection username")
	password := fs.String("password", "", "connection password")
	resourceID := fs.String("resource-id", "", "DSN or URL for the connection")
	wallet := fs.String("wallet", "", "path to a wallet zip file (dsn connections only)")
	out := fs.String("out", "", "output zip path for -export")
	exportPassword := fs.String("export-password", "", "re-encryption secret for -export")
	protect := fs.Bool("protect", false, "age-encrypt the export payload under the export password")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	rt := cfg.ResourceType
	if *resourceType != "" {
		rt = *resourceType
	}
	if !model.ResourceType(rt).Valid() {
		return fmt.Errorf("invalid resource type %q: must be dsn or url", rt)
	}

	modes := 0
	for _, m := range []bool{*create, *edit, *remove, *list, *export} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("exactly one of -create, -edit, -delete, -list or -export is required")
	}

	logger := slog.Default()
	ctx := context.Background()

	registry := application.NewRegistry(
		func(projectID, resourceType string) (driven.CredentialStore, error) {
			path, err := inifile.StorePath(projectID, resourceType)
			if err != nil {
				return nil, err
			}
			return inifile.NewStore(path, logger), nil
		},
		secrets.NewCodec(),
		hostid.New(),
		logger,
	)

	vault, err := registry.Get(ctx, cfg.ProjectID, rt)
	if err != nil {
		return err
	}
	svc := application.NewConnectionService(vault, logger)

	switch {
	case *list:
		return runList(ctx, svc, rt, *printCreds)

	case *create:
		if *name == "" {
			return errors.New("-name is required for -create")
		}
		err := svc.Create(ctx, model.Connection{
			Name:          *name,
			Username:      *username,
			Password:      *password,
			ResourceID:    *resourceID,
			WalletZipPath: *wallet,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Connection %q created.\n", *name)
		return nil

	case *edit:
		if *name == "" {
			return errors.New("-name is required for -edit")
		}
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		patch := application.ConnectionUpdate{}
		if set["username"] {
			patch.Username = username
		}
		if set["password"] {
			patch.Password = password
		}
		if set["resource-id"] {
			patch.ResourceID = resourceID
		}
		if set["wallet"] {
			patch.WalletZipPath = wallet
		}
		if err := svc.Update(ctx, *name, patch); err != nil {
			return err
		}
		fmt.Printf("Connection %q updated.\n", *name)
		return nil

	case *remove:
		if *name == "" {
			return errors.New("-name is required for -delete")
		}
		if err := svc.Delete(ctx, *name); err != nil {
			return err
		}
		fmt.Printf("Connection %q deleted.\n", *name)
		return nil

	case *export:
		if *name == "" {
			return errors.New("-name is required for -export ('*' exports all connections)")
		}
		if *exportPassword == "" {
			return errors.New("-export-password is required for -export")
		}
		zipPath := *out
		if zipPath == "" {
			zipPath = filepath.Join(cfg.ExportDir, rt+"_credentials.zip")
		}
		exporter := application.NewExporter(vault, svc, logger)
		err := exporter.Export(ctx, *name, *exportPassword, zipPath, application.ExportOptions{
			ProtectPayload: *protect,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Credentials exported and saved to %s.\n", zipPath)
		return nil
	}
	return nil
}

func runList(ctx context.Context, svc *application.ConnectionService, resourceType string, printCreds bool) error {
	conns, err := svc.List(ctx, printCreds)
	if err != nil {
		return err
	}
	typeDesc := "URL"
	if resourceType == string(model.ResourceDSN) {
		typeDesc = "DSN/TNS"
	}
	if len(conns) == 0 {
		fmt.Printf("No %s connections found.\n", typeDesc)
		return nil
	}

	fmt.Printf("Pos %-20s  %-50s  Wallet Pathname\n", "Name", typeDesc)
	fmt.Printf("=== %-20s  %-50s  %s\n", strings.Repeat("=", 20), strings.Repeat("=", 50), strings.Repeat("=", 30))
	for i, conn := range conns {
		switch {
		case printCreds:
			fmt.Printf("%3d %-20s  %-50s  [%s / %s]\n", i+1, conn.Name, conn.ResourceID, conn.Username, conn.Password)
		case resourceType == string(model.ResourceDSN):
			wallet := conn.WalletZipPath
			if wallet == "" {
				wallet = "No wallet"
			}
			fmt.Printf("%3d %-20s  %-50s  %s\n", i+1, conn.Name, conn.ResourceID, wallet)
		default:
			fmt.Printf("%3d %-20s  %s\n", i+1, conn.Name, conn.ResourceID)
		}
	}
	return nil
}
