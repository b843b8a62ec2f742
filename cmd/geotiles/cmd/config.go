package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrissteinbach/geotiles/config"
)

// configCmd writes a build settings file prefilled with defaults.
var configCmd = &cobra.Command{
	Use:   "config [FILE]",
	Short: "create a build settings file",
	Long: `Create a build settings file in YAML format, prefilled with the
default grid geometry and limits.

If FILE is not provided, 'geotiles.yml' is used.`,
	Run: func(cmd *cobra.Command, args []string) {
		path := "geotiles.yml"
		if len(args) >= 1 {
			path = args[0]
		}
		ok, err := confirmIfExists(path, fmt.Sprintf("file %q already exists, overwrite? [y/N]", path))
		if err != nil {
			die("config", err)
		}
		if !ok {
			fmt.Println("aborted by user")
			return
		}
		if err := config.Save(config.DefaultSettings(), path); err != nil {
			// Save refuses to overwrite; the user just confirmed they want
			// to, so remove it ourselves first.
			if removeErr := removeThenSave(path); removeErr != nil {
				die("config", removeErr)
			}
		}
		fmt.Printf("build settings written to %q\n", path)
	},
}

func removeThenSave(path string) error {
	if err := removeFile(path); err != nil {
		return err
	}
	return config.Save(config.DefaultSettings(), path)
}

func init() {
	RootCmd.AddCommand(configCmd)
}
