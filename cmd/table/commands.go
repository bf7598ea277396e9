package table

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/terndb/tern-go/rpc/common"
)

var (
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := rpcClient.ListTables()
			if err != nil {
				return err
			}
			for _, name := range tables {
				fmt.Println(name)
			}
			return nil
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [table] [keyColumn ...]",
		Short: "Creates a table with the given key columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := parseOptions(cmd)
			if err != nil {
				return err
			}
			if err := rpcClient.CreateTable(args[0], args[1:], options); err != nil {
				return err
			}
			fmt.Println("table created")
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [table]",
		Short: "Deletes a table and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.DeleteTable(args[0]); err != nil {
				return err
			}
			fmt.Println("table deleted")
			return nil
		},
	}
	openCmd = &cobra.Command{
		Use:   "open [table]",
		Short: "Opens a table on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.OpenTable(args[0]); err != nil {
				return err
			}
			fmt.Println("table opened")
			return nil
		},
	}
	closeCmd = &cobra.Command{
		Use:   "close [table]",
		Short: "Closes a table on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.CloseTable(args[0]); err != nil {
				return err
			}
			fmt.Println("table closed")
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [table] [attribute ...]",
		Short: "Shows table attributes (all if none are named)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := rpcClient.TableInfo(args[0], args[1:])
			if err != nil {
				return err
			}
			for _, f := range fields {
				fmt.Printf("%s=%s\n", f.Name, f.Value)
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [table] [keyField=value ...]",
		Short: "Reads the row stored under a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			columns, ok, err := rpcClient.Read(args[0], key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("not found")
				return nil
			}
			fmt.Println(formatFields(columns))
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [table] [keyField=value ...]",
		Short: "Writes a row under a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			columnArgs, _ := cmd.Flags().GetStringArray("column")
			columns, err := parseFields(columnArgs)
			if err != nil {
				return err
			}
			if err := rpcClient.Write(args[0], key, columns); err != nil {
				return err
			}
			fmt.Println("row written")
			return nil
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [table] [keyField=value ...]",
		Short: "Applies update instructions to the row under a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			ops, err := parseUpdateOps(cmd)
			if err != nil {
				return err
			}
			columns, err := rpcClient.Update(args[0], key, ops)
			if err != nil {
				return err
			}
			fmt.Println(formatFields(columns))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [table] [keyField=value ...]",
		Short: "Deletes the row stored under a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			if err := rpcClient.Delete(args[0], key); err != nil {
				return err
			}
			fmt.Println("row deleted")
			return nil
		},
	}
	rangeCmd = &cobra.Command{
		Use:   "range [table]",
		Short: "Reads all rows with keys between --start and --end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startArgs, _ := cmd.Flags().GetStringArray("start")
			endArgs, _ := cmd.Flags().GetStringArray("end")
			limit, _ := cmd.Flags().GetUint32("limit")

			start, err := parseFields(startArgs)
			if err != nil {
				return err
			}
			end, err := parseFields(endArgs)
			if err != nil {
				return err
			}

			rows, err := rpcClient.ReadRange(args[0], start, end, limit)
			if err != nil {
				return err
			}
			printRows(rows)
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [table]",
		Short: "Walks the table with an iterator, from --start-at (or the first row) for -n rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startArgs, _ := cmd.Flags().GetStringArray("start-at")
			n, _ := cmd.Flags().GetInt("n")
			reverse, _ := cmd.Flags().GetBool("reverse")

			var (
				row      []common.Field
				iterator []byte
				err      error
			)
			switch {
			case len(startArgs) > 0:
				start, perr := parseFields(startArgs)
				if perr != nil {
					return perr
				}
				row, iterator, err = rpcClient.Seek(args[0], start)
			case reverse:
				row, iterator, err = rpcClient.Last(args[0])
			default:
				row, iterator, err = rpcClient.First(args[0])
			}

			for i := 0; i < n; i++ {
				if err != nil {
					return err
				}
				if len(row) == 0 {
					return nil
				}
				fmt.Println(formatFields(row))

				if reverse {
					row, iterator, err = rpcClient.Prev(iterator)
				} else {
					row, iterator, err = rpcClient.Next(iterator)
				}
			}
			return nil
		},
	}
	indexAddCmd = &cobra.Command{
		Use:   "index-add [table] [column ...]",
		Short: "Creates secondary indexes on the given columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := parseOptions(cmd)
			if err != nil {
				return err
			}
			indexes := make([]common.IndexConfig, 0, len(args)-1)
			for _, column := range args[1:] {
				indexes = append(indexes, common.IndexConfig{Column: column, Options: options})
			}
			if err := rpcClient.AddIndex(args[0], indexes); err != nil {
				return err
			}
			fmt.Println("indexes created")
			return nil
		},
	}
	indexRmCmd = &cobra.Command{
		Use:   "index-rm [table] [column ...]",
		Short: "Drops the secondary indexes on the given columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.RemoveIndex(args[0], args[1:]); err != nil {
				return err
			}
			fmt.Println("indexes removed")
			return nil
		},
	}
	indexReadCmd = &cobra.Command{
		Use:   "index-read [table] [column] [term]",
		Short: "Queries the secondary index of a column for a term",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sortBy, _ := cmd.Flags().GetString("sort-by")
			startTs, _ := cmd.Flags().GetUint64("start-ts")
			endTs, _ := cmd.Flags().GetUint64("end-ts")
			max, _ := cmd.Flags().GetUint32("max")

			filter := &common.PostingFilter{
				SortBy:      sortBy,
				StartTs:     startTs,
				EndTs:       endTs,
				MaxPostings: max,
			}
			rows, err := rpcClient.IndexRead(args[0], args[1], args[2], filter)
			if err != nil {
				return err
			}
			printRows(rows)
			return nil
		},
	}
)

func init() {
	createCmd.Flags().StringArray("option", nil, "table option as name=value (repeatable)")
	putCmd.Flags().StringArray("column", nil, "column as name=value (repeatable)")
	updateCmd.Flags().StringArray("set", nil, "set a field: name=value (repeatable)")
	updateCmd.Flags().StringArray("incr", nil, "increment a field: name=amount (repeatable)")
	updateCmd.Flags().StringArray("append", nil, "append to a field: name=value (repeatable)")
	rangeCmd.Flags().StringArray("start", nil, "range start key field as name=value (repeatable)")
	rangeCmd.Flags().StringArray("end", nil, "range end key field as name=value (repeatable)")
	rangeCmd.Flags().Uint32("limit", 100, "maximum number of rows to return")
	scanCmd.Flags().StringArray("start-at", nil, "key field to seek to before scanning (repeatable)")
	scanCmd.Flags().Int("n", 10, "number of rows to print")
	scanCmd.Flags().Bool("reverse", false, "walk backwards from the end of the table")
	indexAddCmd.Flags().StringArray("option", nil, "index option as name=value (repeatable)")
	indexReadCmd.Flags().String("sort-by", "", "posting order (e.g. timestamp, relevance)")
	indexReadCmd.Flags().Uint64("start-ts", 0, "lower timestamp bound for postings")
	indexReadCmd.Flags().Uint64("end-ts", 0, "upper timestamp bound for postings")
	indexReadCmd.Flags().Uint32("max", 0, "maximum number of postings (0 means server default)")
}

// --------------------------------------------------------------------------
// Argument parsing and output helpers
// --------------------------------------------------------------------------

// parseFields turns "name=value" arguments into fields, keeping order.
func parseFields(args []string) ([]common.Field, error) {
	fields := make([]common.Field, 0, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		fields = append(fields, common.Field{Name: name, Value: []byte(value)})
	}
	return fields, nil
}

// parseOptions turns the repeatable --option flag into a map.
func parseOptions(cmd *cobra.Command) (map[string]string, error) {
	args, _ := cmd.Flags().GetStringArray("option")
	if len(args) == 0 {
		return nil, nil
	}
	options := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		options[name] = value
	}
	return options, nil
}

// parseUpdateOps collects the --set/--incr/--append flags into instructions.
func parseUpdateOps(cmd *cobra.Command) ([]common.UpdateOp, error) {
	var ops []common.UpdateOp
	for flag, instruction := range map[string]string{
		"set":    common.UpdateInstructionSet,
		"incr":   common.UpdateInstructionIncrement,
		"append": common.UpdateInstructionAppend,
	} {
		args, _ := cmd.Flags().GetStringArray(flag)
		for _, arg := range args {
			name, value, found := strings.Cut(arg, "=")
			if !found || name == "" {
				return nil, fmt.Errorf("expected name=value, got %q", arg)
			}
			ops = append(ops, common.UpdateOp{Field: name, Instruction: instruction, Value: []byte(value)})
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("at least one of --set, --incr or --append is required")
	}
	return ops, nil
}

func formatFields(fields []common.Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name, f.Value))
	}
	return strings.Join(parts, ", ")
}

func printRows(rows []common.Row) {
	for _, row := range rows {
		fmt.Println(formatFields(row))
	}
}
