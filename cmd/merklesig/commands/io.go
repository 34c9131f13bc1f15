package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"merklesig/internal/wire"
)

// readInput reads path, or stdin when path is "" or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// readArmored reads and decodes an armored key or signature file.
func readArmored(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return wire.Dearmor(string(b))
}

// writeArmored writes the armored form of b to path, or to stdout when path
// is "" or "-".
func writeArmored(cmd *cobra.Command, path string, b []byte) error {
	text := wire.Armor(b) + "\n"
	if path == "" || path == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
