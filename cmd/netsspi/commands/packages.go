package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/cli/output"
	"github.com/marmos91/netsspi/pkg/protocol"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the security packages a server offers",
	Long: `List the security packages a running NetSSPI server offers.

Examples:
  # List packages over the configured transport
  netsspi packages

  # Query one package over a Unix socket
  netsspi packages info NTLM --transport ipc --address /run/netsspi.sock`,
	Args: cobra.NoArgs,
	RunE: runPackages,
}

var packageInfoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Describe one security package",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackageInfo,
}

func init() {
	packagesCmd.AddCommand(packageInfoCmd)
}

// packageView is the printable form of protocol.PackageInfo.
type packageView struct {
	Name         string `json:"name" yaml:"name"`
	Comment      string `json:"comment" yaml:"comment"`
	Capabilities uint32 `json:"capabilities" yaml:"capabilities"`
	Version      uint16 `json:"version" yaml:"version"`
	RPCID        uint16 `json:"rpc_id" yaml:"rpc_id"`
	MaxToken     uint32 `json:"max_token" yaml:"max_token"`
}

func newPackageView(p protocol.PackageInfo) packageView {
	return packageView{
		Name:         p.Name.Text(),
		Comment:      p.Comment.Text(),
		Capabilities: p.Capabilities,
		Version:      p.Version,
		RPCID:        p.RPCID,
		MaxToken:     p.MaxToken,
	}
}

type packageList []packageView

func (l packageList) Headers() []string {
	return []string{"Name", "RPC ID", "Max Token", "Capabilities", "Comment"}
}

func (l packageList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{
			p.Name,
			strconv.Itoa(int(p.RPCID)),
			strconv.FormatUint(uint64(p.MaxToken), 10),
			output.Flags(p.Capabilities),
			p.Comment,
		})
	}
	return rows
}

func runPackages(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	client, conn, err := dial(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	resp, status, err := client.EnumerateSecurityPackages(ctx)
	if err != nil {
		return err
	}
	if status.IsError() {
		return fmt.Errorf("EnumerateSecurityPackages: %s", status)
	}

	list := make(packageList, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		list = append(list, newPackageView(p))
	}
	return printer.Print(list)
}

func runPackageInfo(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	client, conn, err := dial(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	resp, status, err := client.QuerySecurityPackageInfo(ctx, &protocol.QuerySecurityPackageInfoRequest{
		PackageName: protoString(cfg, args[0]),
	})
	if err != nil {
		return err
	}
	if status.IsError() {
		return fmt.Errorf("QuerySecurityPackageInfo %s: %s", args[0], status)
	}
	return printer.Print(packageList{newPackageView(resp.PackageInfo)})
}
