package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/lnp-bp/invoice/invoice"
	"github.com/urfave/cli"
)

var createCommand = cli.Command{
	Name:      "create",
	Usage:     "Create a new invoice.",
	ArgsUsage: "beneficiary [amount] [asset]",
	Description: `
	Creates a new invoice paying to the given beneficiary and prints its
	bech32 text form.

	The beneficiary can be an on-chain address, a blinded UTXO or an
	output descriptor template. The amount is given in satoshis or in the
	smallest division of the asset; omitting it accepts any amount. The
	asset is an RGB contract id in bech32 or hex form; omitting it means
	plain bitcoin.`,
	Action: createInvoice,
}

func createInvoice(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "create")
	}
	args := ctx.Args()

	beneficiary, err := invoice.ParseBeneficiary(args.First())
	if err != nil {
		return err
	}

	var amount *uint64
	if len(args) > 1 {
		value, err := strconv.ParseUint(args.Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		amount = &value
	}

	inv := invoice.New(beneficiary, amount, nil)
	if len(args) > 2 {
		contract, err := readContractID(args.Get(2), formatBech32)
		if err != nil {
			return err
		}
		inv.SetAsset(contract.AssetID())
	}

	return writeInvoice(os.Stdout, inv, formatBech32)
}

var convertCommand = cli.Command{
	Name:      "convert",
	Usage:     "Convert between invoice data representations.",
	ArgsUsage: "[invoice]",
	Description: `
	Reads invoice data in the input format and writes them back in the
	output format. When no argument is given the data are read from
	standard input.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "input, i",
			Value: "bech32",
			Usage: "Formatting of the input invoice data.",
		},
		cli.StringFlag{
			Name:  "output, o",
			Value: "yaml",
			Usage: "Formatting for the output invoice data.",
		},
	},
	Action: convertInvoice,
}

func convertInvoice(ctx *cli.Context) error {
	input, err := parseFormat(ctx.String("input"))
	if err != nil {
		return err
	}
	output, err := parseFormat(ctx.String("output"))
	if err != nil {
		return err
	}

	data, err := argOrStdin(ctx)
	if err != nil {
		return err
	}

	inv, err := readInvoice(data, input)
	if err != nil {
		return err
	}

	return writeInvoice(os.Stdout, inv, output)
}

var rgbConvertCommand = cli.Command{
	Name:      "rgb-convert",
	Usage:     "Convert an RGB asset id between representations.",
	ArgsUsage: "[asset]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "input, i",
			Value: "hex",
			Usage: "Formatting of the input asset id.",
		},
		cli.StringFlag{
			Name:  "output, o",
			Value: "bech32",
			Usage: "Formatting for the output asset id.",
		},
	},
	Action: rgbConvert,
}

func rgbConvert(ctx *cli.Context) error {
	input, err := parseFormat(ctx.String("input"))
	if err != nil {
		return err
	}
	output, err := parseFormat(ctx.String("output"))
	if err != nil {
		return err
	}

	data, err := argOrStdin(ctx)
	if err != nil {
		return err
	}

	id, err := readContractID(data, input)
	if err != nil {
		return err
	}

	return writeContractID(os.Stdout, id, output)
}

var concealCommand = cli.Command{
	Name:      "conceal",
	Usage:     "Create a blinded UTXO from an outpoint.",
	ArgsUsage: "outpoint",
	Description: `
	Wraps the given "txid:vout" outpoint with a random blinding factor
	and prints both the revealed and the concealed seal. The revealed
	form must be kept private; only the concealed form goes into an
	invoice.`,
	Action: concealOutpoint,
}

func concealOutpoint(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "conceal")
	}

	op, err := invoice.ParseOutPoint(ctx.Args().First())
	if err != nil {
		return err
	}

	seal, err := invoice.NewRevealedSeal(op)
	if err != nil {
		return err
	}

	fmt.Println(seal)
	fmt.Println(seal.Conceal())

	return nil
}
