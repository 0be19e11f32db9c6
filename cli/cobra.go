package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}

	if cmd.HasSubCommands() {
		return errors.New("\n" + strings.TrimRight(cmd.UsageString(), "\n"))
	}

	return fmt.Errorf("\"%s\" accepts no argument(s).\nSee '%s --help'.\n\nUsage:  %s\n\n%s",
		cmd.CommandPath(),
		cmd.CommandPath(),
		cmd.UseLine(),
		cmd.Short)
}

// ProjectArg requires exactly one positive numeric project id.
func ProjectArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("\"%s\" requires exactly 1 argument.\nSee '%s --help'.\n\nUsage:  %s\n\n%s",
			cmd.CommandPath(),
			cmd.CommandPath(),
			cmd.UseLine(),
			cmd.Short)
	}

	if _, err := parseProjectID(args[0]); err != nil {
		return err
	}
	return nil
}

func parseProjectID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}
