package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
)

// NewKeygenCmd 创建 keygen 命令
//
// --out 为 "-" 时把编码后的私钥写到标准输出，可直接用作配置中的 private_key。
func NewKeygenCmd() *cobra.Command {
	var (
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 identity key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			priv, err := identity.Generate()
			if err != nil {
				return err
			}
			id, err := identity.New(priv)
			if err != nil {
				return err
			}

			if out == "-" {
				encoded, err := identity.EncodePrivateKey(priv)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), encoded)
				fmt.Fprintln(cmd.ErrOrStderr(), id.ID())
				return nil
			}

			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := identity.Save(priv, out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.ID())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "node.key", `Key file path ("-" prints the encoded key)`)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing key file")
	return cmd
}
