package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"toolscope/internal/domain"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printSelection(selection domain.Selection, jsonOutput bool) error {
	if jsonOutput {
		payload := map[string]any{
			"ownerKey":    selection.OwnerKey,
			"provenance":  selection.Provenance,
			"catalogSize": selection.CatalogSize,
			"tools":       selection.Tools,
		}
		if selection.RankError != nil {
			payload["rankError"] = selection.RankError.Error()
		}
		return writeJSON(payload)
	}
	fmt.Printf("provenance=%s tools=%d catalog=%d\n", selection.Provenance, len(selection.Tools), selection.CatalogSize)
	for _, tool := range selection.Tools {
		fmt.Printf("%2d  %s  (%s)\n", tool.Relevance, tool.Name, tool.Toolkit)
	}
	return nil
}

func printCatalog(snapshot domain.CatalogSnapshot, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"etag":  snapshot.ETag,
			"tools": snapshot.Records,
		})
	}
	fmt.Printf("etag=%s tools=%d\n", snapshot.ETag, len(snapshot.Records))
	for _, record := range snapshot.Records {
		fmt.Printf("[%s] %s\n", record.Toolkit, record.Signature)
		if doc := strings.TrimSpace(record.Docstring); doc != "" {
			fmt.Printf("    %s\n", doc)
		}
	}
	return nil
}

// writeMetrics writes the toolscope metric families in the text exposition format.
func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "toolscope_") {
			continue
		}
		if err := encoder.Encode(family); err != nil {
			return err
		}
	}
	return nil
}
