package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"parcel-service/internal/annotate"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses a [[lng,lat],...] ring from the first argument, or from stdin
// when there is none, and prints it as a closed GeoJSON polygon feature.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ring-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pretty := fs.Bool("pretty", false, "Indent the GeoJSON output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: ring-check [-pretty] '[[lng,lat],[lng,lat],...]'")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var text string
	switch fs.NArg() {
	case 0:
		raw, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error: reading stdin: %v\n", err)
			return 1
		}
		text = string(raw)
	case 1:
		text = fs.Arg(0)
	default:
		text = strings.Join(fs.Args(), "")
	}

	ring, err := annotate.ParseCoordinates(text)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	closed := ring.Closed()
	centroid, _ := ring.Centroid()

	feature := geojson.NewFeature(orb.Polygon{closed.Orb()})
	feature.BBox = geojson.NewBBox(closed.Orb().Bound())
	feature.Properties["vertices"] = closed.Open().DistinctLen()
	feature.Properties["centroid"] = []float64{centroid.Lng, centroid.Lat}

	var out []byte
	if *pretty {
		out, err = json.MarshalIndent(feature, "", "  ")
	} else {
		out, err = json.Marshal(feature)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, string(out))
	return 0
}
