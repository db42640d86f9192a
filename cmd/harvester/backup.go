package main

import (
	"errors"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/jonathan/api-harvester/internal/backup"
	"github.com/jonathan/api-harvester/internal/config"
	"github.com/jonathan/api-harvester/internal/credentials"
)

var backupCommand = &cobra.Command{
	Use:   "backup",
	Short: "Zip the project folder and upload it to Google Drive",
	Long: `Creates a timestamped zip of the source folder and uploads it to a Google
Drive folder. The folder id and service account file come from the backup
credential row (AddAPI_URL and AddAPI_AdditionalNotesDrop) unless set with
flags or in the config file.`,
	RunE: runBackup,
}

var (
	backupSource         string
	backupOutput         string
	backupPrefix         string
	backupFolderID       string
	backupServiceAccount string
)

func init() {
	backupCommand.Flags().StringVar(&backupSource, "source", "", "Folder to archive")
	backupCommand.Flags().StringVarP(&backupOutput, "out", "o", "", "Directory for the zip file")
	backupCommand.Flags().StringVar(&backupPrefix, "prefix", "", "Archive name prefix")
	backupCommand.Flags().StringVar(&backupFolderID, "folder-id", "", "Google Drive folder id")
	backupCommand.Flags().StringVar(&backupServiceAccount, "service-account", "", "Path to a service account JSON key")
	rootCmd.AddCommand(backupCommand)
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, func(cmd *cobra.Command, cfg *config.Config) {
		if cmd.Flags().Changed("source") {
			cfg.Backup.SourceDir = backupSource
		}
		if cmd.Flags().Changed("out") {
			cfg.Backup.OutputDir = backupOutput
		}
		if cmd.Flags().Changed("prefix") {
			cfg.Backup.ArchivePrefix = backupPrefix
		}
		if cmd.Flags().Changed("folder-id") {
			cfg.Backup.FolderID = backupFolderID
		}
		if cmd.Flags().Changed("service-account") {
			cfg.Backup.ServiceAccountFile = backupServiceAccount
		}
	})
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	folderID, keyFile, err := resolveDriveTarget(cfg)
	if err != nil {
		return err
	}

	var opts []option.ClientOption
	if keyFile != "" {
		opts = append(opts, option.WithCredentialsFile(keyFile))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	uploader, err := backup.NewDriveUploader(ctx, folderID, opts...)
	if err != nil {
		return err
	}

	archive, id, err := backup.Run(ctx, backup.Options{
		SourceDir:     cfg.Backup.SourceDir,
		OutputDir:     cfg.Backup.OutputDir,
		ArchivePrefix: cfg.Backup.ArchivePrefix,
	}, uploader, logger)
	if err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout()).PrintBackup(archive, id)
	return nil
}

// resolveDriveTarget returns the Drive folder id and service account key
// path. Explicit config values win over the credential row, and the
// credentials file is only read when something is still missing.
func resolveDriveTarget(cfg config.Config) (string, string, error) {
	folderID := cfg.Backup.FolderID
	keyFile := cfg.Backup.ServiceAccountFile
	if folderID != "" && keyFile != "" {
		return folderID, keyFile, nil
	}

	records, err := credentials.Load(cfg.Credentials, cfg.CredentialsEncoding)
	if err != nil {
		if folderID != "" {
			return folderID, keyFile, nil
		}
		return "", "", &config.ConfigurationError{Source: cfg.Credentials, Cause: err}
	}
	if rec, ok := credentials.Find(records, cfg.Backup.Credential); ok {
		if folderID == "" {
			folderID = rec.URL
		}
		if keyFile == "" {
			keyFile = rec.Notes
		}
	}

	if folderID == "" {
		return "", "", &config.ConfigurationError{
			Source: "backup.folder_id",
			Cause:  errors.New("no Drive folder id in config or in the " + cfg.Backup.Credential + " credential row"),
		}
	}
	return folderID, keyFile, nil
}
