package main

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/urfave/cli/v2"
)

var flagKind = &cli.StringFlag{
	Name:     "kind",
	Required: true,
	Usage:    "address kind: scope, session, record, scopespec, contractspec or recspec",
}

var flagUUID = &cli.StringFlag{
	Name:     "uuid",
	Required: true,
	Usage:    "primary uuid (scope or specification id)",
}

var flagName = &cli.StringFlag{
	Name:  "name",
	Usage: "record or record specification name",
}

var flagSession = &cli.StringFlag{
	Name:  "session",
	Usage: "session uuid",
}

var addressCommand = &cli.Command{
	Name:  "address",
	Usage: "encode and decode metadata addresses",
	Subcommands: []*cli.Command{
		{
			Name:  "encode",
			Usage: "build a bech32 metadata address",
			Flags: []cli.Flag{flagKind, flagUUID, flagName, flagSession},
			Action: func(cCtx *cli.Context) error {
				addr, err := encodeAddress(cCtx.String(flagKind.Name), cCtx.String(flagUUID.Name), cCtx.String(flagName.Name), cCtx.String(flagSession.Name))
				if err != nil {
					return err
				}
				encoded, err := addr.Bech32()
				if err != nil {
					return err
				}
				fmt.Println(encoded)
				return nil
			},
		},
		{
			Name:      "decode",
			Usage:     "print the parts of a bech32 metadata address",
			ArgsUsage: "<address>",
			Action: func(cCtx *cli.Context) error {
				if cCtx.NArg() != 1 {
					return fmt.Errorf("expected one address argument, got %d", cCtx.NArg())
				}
				addr, err := metadata.FromBech32(cCtx.Args().First())
				if err != nil {
					return err
				}
				fmt.Printf("kind: %s\nuuid: %s\n", addr.Kind(), addr.PrimaryUUID())
				if secondary := addr.SecondaryBytes(); secondary != nil {
					fmt.Printf("secondary: %s\n", hex.EncodeToString(secondary))
				}
				fmt.Printf("hex: %s\n", hex.EncodeToString(addr))
				return nil
			},
		},
	},
}

func encodeAddress(kind, primary, name, session string) (metadata.MetadataAddress, error) {
	id, err := uuid.Parse(primary)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid: %w", err)
	}

	switch kind {
	case "scope":
		return metadata.ForScope(id), nil
	case "session":
		sessionID, err := uuid.Parse(session)
		if err != nil {
			return nil, fmt.Errorf("invalid session uuid: %w", err)
		}
		return metadata.ForSession(id, sessionID), nil
	case "record":
		return metadata.ForRecord(id, name)
	case "scopespec":
		return metadata.ForScopeSpecification(id), nil
	case "contractspec":
		return metadata.ForContractSpecification(id), nil
	case "recspec":
		return metadata.ForRecordSpecification(id, name)
	default:
		return nil, fmt.Errorf("unknown address kind %q", kind)
	}
}
