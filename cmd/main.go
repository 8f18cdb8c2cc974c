package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kass/go-geohash/pkg/cellindex"
	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	logLevel     string
	outputFormat string
	precision    int
	accuracy     float64

	cfg    Config
	logger zerolog.Logger
	out    *printer
)

var rootCmd = &cobra.Command{
	Use:   "geohash",
	Short: "Geohash cell toolkit",
	Long: `Encode and decode geohash cells, enumerate neighbors, cover boxes and circles
with cells, compress cell sets and test cell membership.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a point into a geohash",
	Args:  cobra.NoArgs,
	RunE:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode CODE...",
	Short: "Decode geohashes into bounding boxes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDecode,
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors CODE...",
	Short: "List a cell and its eight neighbors",
	Long: `With one code, prints the cell followed by its neighbors in the order
north, north-west, west, south-west, south, south-east, east, north-east.
With several codes, prints the sorted union of their neighborhoods.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNeighbors,
}

var rectCmd = &cobra.Command{
	Use:   "rect",
	Short: "Cover a bounding box with cells",
	Args:  cobra.NoArgs,
	RunE:  runRect,
}

var circleCmd = &cobra.Command{
	Use:   "circle",
	Short: "Cover a circle with cells",
	Args:  cobra.NoArgs,
	RunE:  runCircle,
}

var compressCmd = &cobra.Command{
	Use:   "compress [CODE...]",
	Short: "Merge sibling groups into parent cells",
	Long:  `Compress the given codes, or whitespace separated codes read from stdin when none are given.`,
	RunE:  runCompress,
}

var isinCmd = &cobra.Command{
	Use:   "isin CODE...",
	Short: "Test whether point cells fall inside a query region",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIsIn,
}

var coverCmd = &cobra.Command{
	Use:   "cover",
	Short: "List viewport cells not covered by a cached cell set",
	Args:  cobra.NoArgs,
	RunE:  runCover,
}

var (
	lat, lon, radius float64
	isinLat, isinLon float64
	isinRadius       float64
	box              []float64
	queryCodes       []string
	cachedCodes      []string
	compressResult   bool
	compactCache     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "", "Output format: text, json, geojson")
	rootCmd.PersistentFlags().IntVarP(&precision, "precision", "p", 0, "Geohash precision")
	rootCmd.PersistentFlags().Float64VarP(&accuracy, "accuracy", "a", 0, "Compression accuracy in (0, 1]")

	for _, cmd := range []*cobra.Command{encodeCmd, circleCmd} {
		cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
		cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
		_ = cmd.MarkFlagRequired("lat")
		_ = cmd.MarkFlagRequired("lon")
	}
	circleCmd.Flags().Float64VarP(&radius, "radius", "r", 1000, "Radius in meters")
	circleCmd.Flags().BoolVar(&compressResult, "compress", false, "Compress the covering")

	for _, cmd := range []*cobra.Command{rectCmd, coverCmd} {
		cmd.Flags().Float64SliceVarP(&box, "box", "b", nil, "Bounding box: lat_min,lon_min,lat_max,lon_max")
		_ = cmd.MarkFlagRequired("box")
	}
	rectCmd.Flags().BoolVar(&compressResult, "compress", false, "Compress the covering")

	isinCmd.Flags().StringSliceVarP(&queryCodes, "query", "q", nil, "Query cells")
	isinCmd.Flags().Float64Var(&isinLat, "lat", 0, "Circle center latitude (with --radius)")
	isinCmd.Flags().Float64Var(&isinLon, "lon", 0, "Circle center longitude (with --radius)")
	isinCmd.Flags().Float64VarP(&isinRadius, "radius", "r", 0, "Circle radius in meters")
	isinCmd.MarkFlagsOneRequired("query", "radius")
	isinCmd.MarkFlagsMutuallyExclusive("query", "radius")

	coverCmd.Flags().StringSliceVar(&cachedCodes, "cached", nil, "Cells already cached")
	coverCmd.Flags().BoolVar(&compactCache, "compact", false, "Compress the cached cells before the lookup")

	rootCmd.AddCommand(encodeCmd, decodeCmd, neighborsCmd, rectCmd, circleCmd, compressCmd, isinCmd, coverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and lets explicitly set flags override it
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig(configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("precision") {
		cfg.Geohash.Precision = precision
	}
	if flags.Changed("accuracy") {
		cfg.Geohash.Accuracy = accuracy
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	logger = newLogger(cfg.Log, os.Stderr)
	out = newPrinter(os.Stdout, cfg.Output.Format, cfg.Output.Format == "text" && isTerminal(os.Stdout))

	logger.Debug().
		Str("command", cmd.Name()).
		Int("precision", cfg.Geohash.Precision).
		Float64("accuracy", cfg.Geohash.Accuracy).
		Str("format", cfg.Output.Format).
		Msg("configured")
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	code, err := geohash.Encode(lat, lon, cfg.Geohash.Precision)
	if err != nil {
		return err
	}
	if cfg.Output.Format == "text" {
		fmt.Fprintln(os.Stdout, code)
		return nil
	}
	return out.cells([]string{code})
}

func runDecode(cmd *cobra.Command, args []string) error {
	return out.cells(args)
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		codes, err := geohash.Neighbors(args[0])
		if err != nil {
			return err
		}
		return out.codes(codes)
	}

	codes, err := geohash.ManyNeighbors(args)
	if err != nil {
		return err
	}
	return out.codes(codes)
}

func parseBox(values []float64) (models.BoundingBox, error) {
	if len(values) != 4 {
		return models.BoundingBox{}, fmt.Errorf("--box needs 4 values, got %d", len(values))
	}
	return models.NewBoundingBox(values[0], values[1], values[2], values[3]), nil
}

func runRect(cmd *cobra.Command, args []string) error {
	b, err := parseBox(box)
	if err != nil {
		return err
	}
	codes, err := geohash.CoverBox(b, cfg.Geohash.Precision)
	if err != nil {
		return err
	}
	logger.Debug().Int("cells", len(codes)).Msg("covered box")
	return printCovering(codes)
}

func runCircle(cmd *cobra.Command, args []string) error {
	seq, err := geohash.CreateCircle(lat, lon, radius, cfg.Geohash.Precision)
	if err != nil {
		return err
	}
	var codes []string
	for code := range seq {
		codes = append(codes, code)
	}
	logger.Debug().Int("cells", len(codes)).Float64("radius", radius).Msg("covered circle")
	return printCovering(codes)
}

func printCovering(codes []string) error {
	if !compressResult {
		return out.codes(codes)
	}
	compressed, err := geohash.Compress(codes, cfg.Geohash.Accuracy)
	if err != nil {
		return err
	}
	logger.Debug().Int("before", len(codes)).Int("after", len(compressed)).Msg("compressed")
	return out.codes(compressed)
}

func readCodes(r io.Reader) ([]string, error) {
	var codes []string
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		codes = append(codes, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codes: %w", err)
	}
	return codes, nil
}

func runCompress(cmd *cobra.Command, args []string) error {
	codes := args
	if len(codes) == 0 {
		var err error
		if codes, err = readCodes(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	compressed, err := geohash.Compress(codes, cfg.Geohash.Accuracy)
	if err != nil {
		return err
	}
	logger.Info().Int("before", len(codes)).Int("after", len(compressed)).Msg("compressed")
	return out.codes(compressed)
}

func runIsIn(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("radius") {
		in, err := geohash.IsInCircle(args, isinLat, isinLon, isinRadius, cfg.Geohash.Precision)
		if err != nil {
			return err
		}
		return out.membership(args, in)
	}

	for _, code := range append(args[:len(args):len(args)], queryCodes...) {
		if err := geohash.Validate(code); err != nil {
			return err
		}
	}
	return out.membership(args, geohash.IsIn(args, queryCodes))
}

func runCover(cmd *cobra.Command, args []string) error {
	b, err := parseBox(box)
	if err != nil {
		return err
	}

	idx := cellindex.NewIndex()
	if err := idx.Add(cachedCodes...); err != nil {
		return err
	}
	if compactCache {
		if err := idx.Compact(cfg.Geohash.Accuracy); err != nil {
			return err
		}
	}

	missing, err := idx.Missing(b, cfg.Geohash.Precision)
	if err != nil {
		return err
	}
	logger.Info().
		Int64("cached", idx.Count()).
		Int("missing", len(missing)).
		Msg("viewport lookup")
	return out.codes(missing)
}
