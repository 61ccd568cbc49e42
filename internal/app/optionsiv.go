package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// OptionsIV prints per-symbol implied volatility from the backend's options
// chain passthrough.
func (a *App) OptionsIV(ctx context.Context, refresh bool) error {
	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	client := a.newAPIClient(sessions)

	resp, err := client.OptionsIV(ctx, refresh)
	if err != nil {
		return err
	}
	if len(resp.IV) == 0 {
		fmt.Fprintln(os.Stdout, "no implied volatility data")
		return nil
	}

	symbols := make([]string, 0, len(resp.IV))
	for symbol := range resp.IV {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tIV\tError")
	for _, symbol := range symbols {
		iv := "n/a"
		if value := resp.IV[symbol]; value.Valid {
			iv = fmt.Sprintf("%.2f%%", value.Value*100)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", symbol, iv, resp.Errors[symbol])
	}
	return writer.Flush()
}
