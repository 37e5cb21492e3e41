package main

import (
	"fmt"
	"log"
	"math/big"

	"github.com/xueqianLu/ethvault/pkg/client"
)

func main() {
	c := client.NewClient("http://127.0.0.1:8080", "demo-key", "demo-secret")

	if _, err := c.Health(); err != nil {
		log.Fatalf("service not reachable: %v", err)
	}

	created, err := c.CreateAccount("correct-horse")
	if err != nil {
		log.Fatalf("create account: %v", err)
	}
	fmt.Println("new account:", created.Address)

	// Unlock for one minute, then sign without sending the passphrase again.
	if err := c.Unlock(created.Address, "correct-horse", 60); err != nil {
		log.Fatalf("unlock: %v", err)
	}

	signed, err := c.SignTransaction(client.SignTxRequest{
		From:     created.Address,
		To:       created.Address,
		Nonce:    0,
		Value:    big.NewInt(1),
		GasLimit: 21000,
		GasPrice: big.NewInt(1_000_000_000),
		ChainID:  "1",
	})
	if err != nil {
		log.Fatalf("sign transaction: %v", err)
	}
	fmt.Println("raw tx:", signed.RawTx)

	if err := c.Lock(created.Address); err != nil {
		log.Fatalf("lock: %v", err)
	}
}
