// Command flatssa-vet runs the flatssa analyzer as a standalone vet
// tool:
//
//	go vet -vettool=$(which flatssa-vet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/gnolang/flatssa/internal/analyzer"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}
