package inspect

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

const maxLineSize = 16 * 1024 * 1024

type inspectConfig struct {
	path  string
	limit int
	skip  bool
}

func NewInspectCmd() *cobra.Command {
	ic := inspectConfig{}
	cmd := &cobra.Command{
		Use:   "inspect recording",
		Short: "evaluates a JSONPath expression on every line of a recording",
		Example: `  isw inspect race.jsonl --path '$.telemetry.sessionTime'
  isw inspect race.jsonl --path '$.roster.drivers[?(@.isPaceCar == true)].carIdx'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return inspect(f, cmd.OutOrStdout(), &ic)
		},
	}
	cmd.Flags().StringVarP(&ic.path,
		"path",
		"p",
		"$",
		"JSONPath expression")
	cmd.Flags().IntVarP(&ic.limit,
		"limit",
		"n",
		0,
		"stop after this number of lines (0 means all)")
	cmd.Flags().BoolVar(&ic.skip,
		"skip-empty",
		true,
		"do not print lines without a match")
	return cmd
}

// inspect writes "<line number>\t<matches>" for each line of r
func inspect(r io.Reader, out io.Writer, ic *inspectConfig) error {
	x, err := jp.ParseString(ic.path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	opts := &ojg.Options{Sort: true}
	lineNum := 0
	for sc.Scan() {
		lineNum++
		if ic.limit > 0 && lineNum > ic.limit {
			break
		}
		if len(sc.Bytes()) == 0 {
			continue
		}
		data, err := oj.Parse(sc.Bytes())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		result := x.Get(data)
		if len(result) == 0 && ic.skip {
			continue
		}
		var v any = result
		if len(result) == 1 {
			v = result[0]
		}
		if _, err := fmt.Fprintf(out, "%d\t%s\n", lineNum, oj.JSON(v, opts)); err != nil {
			return err
		}
	}
	return sc.Err()
}
