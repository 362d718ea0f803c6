package main

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(upgradeCmd, versionCmd)
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Check for and apply the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking and applying upgrade")
		v := semver.MustParse(version)
		latest, err := selfupdate.UpdateSelf(v, "Tricked-dev/SolidVerdant")
		if err != nil {
			return fmt.Errorf("binary update failed: %w", err)
		}
		if latest.Version.Equals(v) {
			// latest version is the same as current version. It means current binary is up to date.
			log.Println("Current binary is the latest version", version)
		} else {
			log.Println("Successfully updated to version", latest.Version)
			log.Println("Release note:\n", latest.ReleaseNotes)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("solidverdant version %s\n", version)
	},
}
