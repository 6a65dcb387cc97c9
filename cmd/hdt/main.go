// Command hdt opens an HDT dataset and runs one query against it. It
// contains no engine logic of its own: everything here is a thin wrapper
// over the hdt package's Open, TriplesWithPattern, Dump and Stats.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hdtquery/hdt"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("hdt: ")

	s := flag.String("s", "", "subject term to match (lexical form, e.g. <http://example.org/alice>)")
	p := flag.String("p", "", "predicate term to match")
	o := flag.String("o", "", "object term to match")
	hybridF := flag.Bool("hybrid", false, "open in hybrid mode, using (and regenerating) the cache sidecar")
	dump := flag.Bool("dump", false, "dump every triple as N-Triples to standard out")
	stats := flag.Bool("stats", false, "print dataset statistics to standard out")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: hdt [flags] <dataset file>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(flag.Args()) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	var opts []hdt.OpenOption
	if *hybridF {
		opts = append(opts, hdt.WithHybrid(true))
	}

	g, err := hdt.Open(flag.Args()[0], opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	if *stats {
		fmt.Println(g.Stats())
	}

	if *dump {
		if err := g.Dump(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *s == "" && *p == "" && *o == "" {
		if !*stats {
			flag.Usage()
			os.Exit(1)
		}
		return
	}

	it, err := g.TriplesWithPattern(*s, *p, *o)
	if err != nil {
		log.Fatal(err)
	}
	defer it.Close()

	for {
		subj, pred, obj, ok, err := it.Next()
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			break
		}
		fmt.Printf("%s %s %s .\n", subj, pred, obj)
	}
}
