package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mamadbah2/oblik/internal/domain/models"
	"github.com/mamadbah2/oblik/pkg/clients/oblik"
)

const usage = `usage: oblikctl [-addr host:port] <command> [args]

commands:
  status                    show loaded files
  search <query>            filter without recording
  confirm <query>           search and record in history
  stock <name> [article]    stock availability of an item
  history                   show history
  clear-history             empty history
  load-accounting <path>    load an accounting file
  load-stock <path>         load a stock file
  autoload                  load the newest files from the search directories
`

func main() {
	addr := flag.String("addr", envOr("OBLIK_ADDR", "127.0.0.1:8765"), "bridge address")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := oblik.NewClient("http://" + *addr)
	if err := run(ctx, client, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "oblikctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c oblik.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		printFile(out, "accounting", st.Accounting)
		printFile(out, "stock", st.Stock)
		fmt.Fprintf(out, "history: %d entries\n", st.History)

	case "search", "confirm":
		query := strings.Join(rest, " ")
		var (
			res *models.SearchResult
			err error
		)
		if cmd == "search" {
			res, err = c.Search(ctx, query)
		} else {
			res, err = c.Confirm(ctx, query)
		}
		if err != nil {
			return err
		}
		printRows(out, res)

	case "stock":
		if len(rest) == 0 {
			return fmt.Errorf("stock needs an item name")
		}
		article := ""
		if len(rest) > 1 {
			article = rest[1]
		}
		lookup, err := c.Stock(ctx, rest[0], article)
		if err != nil {
			return err
		}
		printStock(out, lookup)

	case "history":
		view, err := c.History(ctx)
		if err != nil {
			return err
		}
		for _, line := range view.Entries {
			fmt.Fprintln(out, line)
		}

	case "clear-history":
		return c.ClearHistory(ctx)

	case "load-accounting", "load-stock":
		if len(rest) != 1 {
			return fmt.Errorf("%s needs a path", cmd)
		}
		var (
			st  *models.FileStatus
			err error
		)
		if cmd == "load-accounting" {
			st, err = c.LoadAccounting(ctx, rest[0])
		} else {
			st, err = c.LoadStock(ctx, rest[0])
		}
		if err != nil {
			return err
		}
		printFile(out, strings.TrimPrefix(cmd, "load-"), *st)

	case "autoload":
		st, err := c.AutoLoad(ctx)
		if err != nil {
			return err
		}
		printFile(out, "accounting", st.Accounting)
		printFile(out, "stock", st.Stock)

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

func printFile(out io.Writer, label string, f models.FileStatus) {
	if !f.Loaded {
		fmt.Fprintf(out, "%s: not loaded\n", label)
		return
	}
	fmt.Fprintf(out, "%s: %s (%d rows", label, f.File, f.Rows)
	if f.Stores > 0 {
		fmt.Fprintf(out, ", %d stores", f.Stores)
	}
	fmt.Fprintln(out, ")")
}

func printRows(out io.Writer, res *models.SearchResult) {
	if res.Warning != "" {
		fmt.Fprintln(out, "warning:", res.Warning)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPURCHASE\tPROFIT\tPRICE\tCODE\tARTICLE")
	for _, r := range res.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Purchase, r.Profit, r.Price, r.Code, r.Article)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "%d rows\n", res.Total)
}

func printStock(out io.Writer, lookup *models.StockLookup) {
	switch lookup.Status {
	case models.StockNotLoaded:
		fmt.Fprintln(out, "stock file not loaded")
	case models.StockNotFound:
		fmt.Fprintln(out, "no stock record for this item")
	case models.StockOutOfStock:
		fmt.Fprintln(out, "out of stock")
	default:
		fmt.Fprintln(out, lookup.Availability.Name)
		for i, col := range lookup.Availability.Columns {
			for _, sq := range col {
				fmt.Fprintf(out, "  [%d] %s: %d\n", i+1, sq.Store, sq.Quantity)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
