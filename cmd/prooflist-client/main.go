package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/client"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/config"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:    "prooflist-client",
		Usage:   "Append to proof lists and verify their Merkle proofs",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Aliases: []string{"url"},
				Value:   fmt.Sprintf("http://localhost:%d", config.DefaultPort),
				Usage:   "Proof list server URL",
				EnvVars: []string{config.EnvProofListServerURL},
			},
			&cli.StringFlag{
				Name:    "hasher",
				Value:   merkle.HasherSHA256,
				Usage:   fmt.Sprintf("Digest the server was configured with: %v", merkle.SupportedHashers()),
				EnvVars: []string{config.EnvProofListHasher},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show length, root and list hash of a list",
				ArgsUsage: "<list>",
				Action:    infoCommand,
			},
			{
				Name:      "append",
				Usage:     "Append hex encoded values to a list",
				ArgsUsage: "<list> <0xvalue>...",
				Action:    appendCommand,
			},
			{
				Name:      "prove",
				Usage:     "Fetch a proof and write it to a file in the protobuf format",
				ArgsUsage: "<list>",
				Flags: []cli.Flag{
					&cli.Uint64SliceFlag{Name: "index", Aliases: []string{"i"}, Usage: "Element index, repeatable"},
					&cli.Uint64Flag{Name: "from", Usage: "First index of a range proof"},
					&cli.Uint64Flag{Name: "to", Usage: "End of a range proof, exclusive"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file", Required: true},
				},
				Action: proveCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify a proof file against a trusted list hash, offline",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proof", Usage: "Proof file written by prove", Required: true},
					&cli.StringFlag{Name: "list-hash", Usage: "Trusted list hash (0x hex)", Required: true},
				},
				Action: verifyCommand,
			},
			{
				Name:      "fetch",
				Usage:     "Fetch elements and verify them against a trusted list hash",
				ArgsUsage: "<list>",
				Flags: []cli.Flag{
					&cli.Uint64SliceFlag{Name: "index", Aliases: []string{"i"}, Usage: "Element index, repeatable", Required: true},
					&cli.StringFlag{Name: "list-hash", Usage: "Trusted list hash (0x hex)", Required: true},
				},
				Action: fetchCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newClient(c *cli.Context) (*client.Client, *zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	hasher, err := merkle.NewHasher(c.String("hasher"))
	if err != nil {
		return nil, nil, err
	}
	return client.NewClient(c.String("server-url"), hasher, l), l, nil
}

func listArg(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", fmt.Errorf("list name is required")
	}
	return name, nil
}

func infoCommand(c *cli.Context) error {
	name, err := listArg(c)
	if err != nil {
		return err
	}
	pc, _, err := newClient(c)
	if err != nil {
		return err
	}

	info, err := pc.Info(c.Context, name)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func appendCommand(c *cli.Context) error {
	name, err := listArg(c)
	if err != nil {
		return err
	}
	if c.Args().Len() < 2 {
		return fmt.Errorf("at least one value is required")
	}

	values := make([][]byte, 0, c.Args().Len()-1)
	for _, arg := range c.Args().Slice()[1:] {
		v, err := hexutil.Decode(arg)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", arg, err)
		}
		values = append(values, v)
	}

	pc, _, err := newClient(c)
	if err != nil {
		return err
	}
	resp, err := pc.Append(c.Context, name, values)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func proveCommand(c *cli.Context) error {
	name, err := listArg(c)
	if err != nil {
		return err
	}
	pc, l, err := newClient(c)
	if err != nil {
		return err
	}

	var proof *merkle.ListProof
	if c.IsSet("from") || c.IsSet("to") {
		if len(c.Uint64Slice("index")) > 0 {
			return fmt.Errorf("--index cannot be combined with --from and --to")
		}
		proof, err = pc.GetRangeProof(c.Context, name, c.Uint64("from"), c.Uint64("to"))
	} else {
		proof, err = pc.GetProof(c.Context, name, c.Uint64Slice("index")...)
	}
	if err != nil {
		return err
	}

	data, err := proof.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode proof: %w", err)
	}
	if err := os.WriteFile(c.String("out"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write proof: %w", err)
	}

	l.Sugar().Infow("Wrote proof",
		"list", name,
		"file", c.String("out"),
		"entries", len(proof.Entries),
		"hashes", len(proof.Proof),
		"length", proof.Length)
	return nil
}

func verifyCommand(c *cli.Context) error {
	hasher, err := merkle.NewHasher(c.String("hasher"))
	if err != nil {
		return err
	}
	expected, err := merkle.HexToHash(c.String("list-hash"))
	if err != nil {
		return fmt.Errorf("invalid list hash: %w", err)
	}

	data, err := os.ReadFile(c.String("proof"))
	if err != nil {
		return fmt.Errorf("failed to read proof: %w", err)
	}
	var proof merkle.ListProof
	if err := proof.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("failed to decode proof: %w", err)
	}

	entries, err := merkle.Verify(hasher, &proof, expected)
	if err != nil {
		_ = printJSON(types.VerifyResponse{Error: err.Error(), Kind: merkle.ErrorKind(err)})
		return cli.Exit("proof is invalid", 1)
	}
	return printJSON(verifiedResponse(entries))
}

func fetchCommand(c *cli.Context) error {
	name, err := listArg(c)
	if err != nil {
		return err
	}
	expected, err := merkle.HexToHash(c.String("list-hash"))
	if err != nil {
		return fmt.Errorf("invalid list hash: %w", err)
	}
	pc, _, err := newClient(c)
	if err != nil {
		return err
	}

	entries, err := pc.FetchVerified(c.Context, name, expected, c.Uint64Slice("index")...)
	if err != nil {
		return err
	}
	return printJSON(verifiedResponse(entries))
}

func verifiedResponse(entries map[uint64][]byte) types.VerifyResponse {
	resp := types.VerifyResponse{Valid: true, Entries: make([]types.EntryResponse, 0, len(entries))}
	for index, value := range entries {
		resp.Entries = append(resp.Entries, types.EntryResponse{Index: index, Value: value})
	}
	sort.Slice(resp.Entries, func(i, j int) bool { return resp.Entries[i].Index < resp.Entries[j].Index })
	return resp
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
