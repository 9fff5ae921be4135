package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/mhracek/sweeper/client"
	"github.com/mhracek/sweeper/console"
	"github.com/mhracek/sweeper/protocol"
)

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Uint("port", 42069, "server port")
	user := flag.String("user", "", "account name (optional)")
	password := flag.String("password", "", "account password")
	register := flag.Bool("register", false, "create the account before logging in")
	token := flag.String("token", "", "session token from an earlier login (hex)")
	flag.Parse()

	c, err := client.Connect(*host, uint16(*port), os.Stdout)
	if err != nil {
		fmt.Println("Failed to connect:", err)
		os.Exit(1)
	}
	defer c.Close()

	switch {
	case *token != "":
		raw, err := hex.DecodeString(*token)
		if err != nil {
			fmt.Println("Invalid token:", err)
			os.Exit(1)
		}
		response, err := c.Resume(raw)
		if err != nil {
			fmt.Println("Token login failed:", err)
			os.Exit(1)
		}
		if !response.Success {
			fmt.Println("Session token rejected, log in with your password")
			os.Exit(1)
		}
		fmt.Printf("Logged in as %s\n", response.Name)
	case *user != "":
		if *register {
			success, err := c.Register(*user, *password)
			if err != nil {
				fmt.Println("Registration failed:", err)
				os.Exit(1)
			}
			if !success {
				fmt.Println("Registration denied by server")
				os.Exit(1)
			}
		}
		response, err := c.Login(*user, *password)
		if err != nil {
			fmt.Println("Login failed:", err)
			os.Exit(1)
		}
		if !response.Success {
			fmt.Println("Invalid username or password")
			os.Exit(1)
		}
		fmt.Printf("Logged in as %s\n", response.Name)
		if len(response.Token) > 0 {
			fmt.Printf("Session token (use -token to reconnect): %s\n", hex.EncodeToString(response.Token))
		}
	}

	size, mines, err := console.PromptParams(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	endType, err := c.Play(protocol.GameParams{Size: size, Mines: mines}, os.Stdin)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	switch endType {
	case protocol.Win:
		fmt.Println("You won!")
	case protocol.Loss:
		fmt.Println("You lost the game.")
	default:
		fmt.Println("Game aborted.")
	}
}
