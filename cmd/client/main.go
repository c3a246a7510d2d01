package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/fasogadget/internal/client/storage"
	"github.com/atinyakov/fasogadget/internal/models"
)

var (
	version   string
	buildDate string
)

const resubmitInterval = 30 * time.Second

// repl runs the interactive shell loop over the local cart.
func repl(ctx context.Context, client *http.Client, baseURL string, ls *storage.LocalStorage, in io.Reader) {
	storage.StartAutoResubmit(ctx, client, baseURL, ls, resubmitInterval)

	reader := bufio.NewReader(in)
	for {
		fmt.Print("fasogadget> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			break
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, products, add <id> [qty], dec <id>, remove <id>, cart, checkout, pending, exit")
		case "products":
			listProducts(client, baseURL)
		case "add":
			if len(args) < 2 {
				fmt.Println("Usage: add <id> [qty]")
				continue
			}
			qty := int64(1)
			if len(args) > 2 {
				n, err := strconv.ParseInt(args[2], 10, 64)
				if err != nil || n <= 0 {
					fmt.Println("Quantity must be a positive integer")
					continue
				}
				qty = n
			}
			p, err := findProduct(client, baseURL, args[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			ls.Add(*p, qty)
			_ = ls.Save()
			fmt.Printf("%s ajouté au panier\n", p.Name)
		case "dec":
			if len(args) < 2 {
				fmt.Println("Usage: dec <id>")
				continue
			}
			if ls.Decrement(args[1]) {
				_ = ls.Save()
			} else {
				fmt.Println("Product not in cart")
			}
		case "remove":
			if len(args) < 2 {
				fmt.Println("Usage: remove <id>")
				continue
			}
			if ls.Remove(args[1]) {
				_ = ls.Save()
			} else {
				fmt.Println("Product not in cart")
			}
		case "cart":
			printCart(ls)
		case "checkout":
			customer := storage.PromptCustomer(reader, os.Stdout)
			number, err := storage.Checkout(client, baseURL, ls, customer, time.Now())
			switch {
			case errors.Is(err, storage.ErrQueued):
				fmt.Printf("Commande %s enregistrée localement, elle sera renvoyée automatiquement (%v)\n", number, err)
			case err != nil:
				fmt.Println("Checkout failed:", err)
			default:
				fmt.Printf("Commande %s envoyée\n", number)
			}
		case "pending":
			for _, o := range ls.PendingOrders() {
				fmt.Printf("%s  %s\n", o.Number, models.FormatPrice(o.Total))
			}
			for _, o := range ls.RejectedOrders() {
				fmt.Printf("%s  %s  (refusée)\n", o.Number, models.FormatPrice(o.Total))
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func listProducts(client *http.Client, baseURL string) {
	products, err := storage.FetchProducts(client, baseURL)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, p := range products {
		badge := ""
		if p.Badge != "" {
			badge = " [" + p.Badge + "]"
		}
		fmt.Printf("%s  %-30s %-11s %s%s\n", p.ID, p.Name, p.Category, models.FormatPrice(p.Price), badge)
	}
}

func findProduct(client *http.Client, baseURL, id string) (*models.Product, error) {
	products, err := storage.FetchProducts(client, baseURL)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("product %s not found", id)
}

func printCart(ls *storage.LocalStorage) {
	items := ls.Items()
	if len(items) == 0 {
		fmt.Println("Votre panier est vide")
		return
	}
	for _, it := range items {
		fmt.Printf("%s  %s x%d  %s\n", it.ID, it.Name, it.Quantity, models.FormatPrice(it.Price*it.Quantity))
	}
	fmt.Printf("Total: %s\n", models.FormatPrice(ls.Total()))
}

// main parses command-line flags and dispatches to the products or shell
// commands.
func main() {
	var (
		cmd      string
		baseURL  string
		caFile   string
		cartFile string
		showVer  bool
	)

	flag.StringVar(&cmd, "cmd", "", "command: products | shell")
	flag.StringVar(&baseURL, "url", "http://localhost:3000", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to CA cert when the server uses a private CA")
	flag.StringVar(&cartFile, "cart", storage.DefaultFile, "path to the local cart file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("FASO GADGET Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	client, err := storage.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	switch cmd {
	case "products":
		listProducts(client, baseURL)
	case "shell":
		ls := storage.NewLocalStorage(cartFile)
		if err := ls.Load(); err != nil {
			log.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		repl(ctx, client, baseURL, ls, os.Stdin)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}
