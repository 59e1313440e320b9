package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/worldcoin/world-id-example-airdrop/config"
	"github.com/worldcoin/world-id-example-airdrop/deployer"
)

var allowanceKeys = []config.Key{config.KeyERC20Address, config.KeyHolderAddress, config.KeyAirdropAmount}

var SetAllowanceCmd = &cli.Command{
	Name:  "set-allowance",
	Usage: "Sets ERC20 token allowance of the holder address to the specified amount.",
	Flags: []cli.Flag{useConfigFlag},
	Action: func(c *cli.Context) error {
		ctx := c.Context
		s, err := newSession(c)
		if err != nil {
			return err
		}

		conn, cl, err := s.connect(ctx)
		if err != nil {
			return err
		}
		defer cl.Close()

		if err := s.resolve(allowanceKeys...); err != nil {
			return err
		}
		if err := config.Require(s.rec, allowanceKeys...); err != nil {
			return err
		}

		token, holder, amount, err := parseAllowance(s.rec)
		if err != nil {
			return err
		}

		fmt.Fprintf(s.out, "Setting allowance of %s on %s to %s...\n", holder.Hex(), token.Hex(), amount)
		receipt, err := deployer.NewERC20(newSubmitter(cl, conn), token).Approve(ctx, holder, amount)
		if err != nil {
			fmt.Fprintf(s.out, "Setting allowance for %s failed.\n", holder.Hex())
			return err
		}

		fmt.Fprintf(s.out, "Allowance set for %s! (tx %s, block %d)\n", holder.Hex(), receipt.TxHash.Hex(), receipt.BlockNumber)
		return s.save()
	},
}

func parseAllowance(rec config.Record) (common.Address, common.Address, *big.Int, error) {
	tokenStr := strings.TrimSpace(rec.Get(config.KeyERC20Address.Name))
	if !common.IsHexAddress(tokenStr) {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("invalid %s %q", config.KeyERC20Address.Name, tokenStr)
	}
	holderStr := strings.TrimSpace(rec.Get(config.KeyHolderAddress.Name))
	if !common.IsHexAddress(holderStr) {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("invalid %s %q", config.KeyHolderAddress.Name, holderStr)
	}
	amountStr := strings.TrimSpace(rec.Get(config.KeyAirdropAmount.Name))
	amount, ok := new(big.Int).SetString(amountStr, 0)
	if !ok || amount.Sign() < 0 {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("invalid %s %q", config.KeyAirdropAmount.Name, amountStr)
	}
	return common.HexToAddress(tokenStr), common.HexToAddress(holderStr), amount, nil
}
