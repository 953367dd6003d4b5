package catalog

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"quartermaster/pkg/types"
)

const (
	semanticCollection = "catalog"
	embeddingDims      = 8
	defaultSemanticK   = 5
)

// Index is a deterministic free-text search over the catalog, backed by an
// in-memory chromem-go collection. Embeddings are hash-derived, so the same
// query against the same catalog always returns the same ordering. No
// network, no model downloads.
type Index struct {
	catalog    *Catalog
	collection *chromem.Collection
}

// NewIndex builds the semantic index for catalog. Building embeds every
// item once; with tens of items this is effectively free.
func NewIndex(ctx context.Context, catalog *Catalog) (*Index, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection(semanticCollection, nil, hashEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create semantic collection: %w", err)
	}
	for _, item := range catalog.Items() {
		doc := chromem.Document{
			ID:      item.ID,
			Content: documentText(item),
		}
		if err := collection.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("index item %s: %w", item.ID, err)
		}
	}
	return &Index{catalog: catalog, collection: collection}, nil
}

// Search returns up to topK items ordered by cosine similarity to query.
// topK defaults to 5 and is capped at the catalog size.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]types.Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = defaultSemanticK
	}
	if topK > ix.catalog.Len() {
		topK = ix.catalog.Len()
	}
	if topK == 0 {
		return nil, nil
	}
	results, err := ix.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}
	items := make([]types.Item, 0, len(results))
	for _, res := range results {
		if item, ok := ix.catalog.Get(res.ID); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// documentText renders one item as the text that gets embedded. Spec keys
// are sorted so the text, and therefore the embedding, is stable.
func documentText(item types.Item) string {
	var b strings.Builder
	b.WriteString(item.Component)
	b.WriteByte(' ')
	b.WriteString(item.Vendor)
	b.WriteByte(' ')
	b.WriteString(item.ID)

	keys := make([]string, 0, len(item.Specs))
	for k := range item.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(item.Specs[k], 'g', -1, 64))
	}
	return b.String()
}

// hashEmbedding is a pure embedding function: md5 of the lowercased text,
// spread over 8 dimensions. It carries no semantics beyond "same words map
// near each other", which is all the demo catalog needs, and it never
// touches the network.
func hashEmbedding(_ context.Context, text string) ([]float32, error) {
	digest := md5.Sum([]byte(strings.ToLower(text)))
	embedding := make([]float32, embeddingDims)
	for i := range embedding {
		embedding[i] = float32(digest[i%len(digest)]) / 255.0
	}
	return embedding, nil
}
