package commands

import (
	"fmt"
	"os"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
)

// NewIssueCmd 创建 issue 命令
//
// 用权威私钥为指定节点签发证书。证书写到标准输出，可直接用作
// --certificate；权威公钥写到标准错误，供准入方配置 --authority-key。
func NewIssueCmd() *cobra.Command {
	var (
		authorityFile string
		peerID        string
		material      string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a certificate for a peer with an authority key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, err := peer.Decode(peerID)
			if err != nil {
				return fmt.Errorf("invalid peer id %q: %w", peerID, err)
			}
			data, err := os.ReadFile(authorityFile)
			if err != nil {
				return fmt.Errorf("read authority key: %w", err)
			}
			authority, err := crypto.UnmarshalPrivateKey(data)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", identity.ErrInvalidKeyMaterial, authorityFile, err)
			}

			issued, err := identity.IssueCertificate(authority, []byte(material), subject)
			if err != nil {
				return err
			}
			pub, err := identity.EncodePublicKey(authority.GetPublic())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), issued)
			fmt.Fprintln(cmd.ErrOrStderr(), pub)
			return nil
		},
	}

	cmd.Flags().StringVarP(&authorityFile, "authority", "a", "", "Authority key file (created by keygen)")
	cmd.Flags().StringVarP(&peerID, "peer", "p", "", "Peer ID the certificate is issued to")
	cmd.Flags().StringVarP(&material, "material", "m", "", "Certificate material")
	_ = cmd.MarkFlagRequired("authority")
	_ = cmd.MarkFlagRequired("peer")
	_ = cmd.MarkFlagRequired("material")
	return cmd
}
