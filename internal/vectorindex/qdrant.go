package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"librarian/internal/contextutil"
	"librarian/internal/library"
)

// QdrantBackend stores each topic's index in a Qdrant collection. Point ids
// are chunk positions, preserving the chunk/vector co-indexing invariant.
// Collections use the Euclid metric; Search squares the reported distance so
// both backends return squared L2 and downstream similarity values agree.
type QdrantBackend struct {
	client *qdrant.Client
	dim    int
}

// NewQdrantBackend creates a Qdrant-backed vector backend.
// urlStr should be in the format "http://host:port" (e.g. "http://localhost:6333");
// the gRPC port is derived from the HTTP port.
func NewQdrantBackend(urlStr string, dim int) (*QdrantBackend, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantBackend{client: client, dim: dim}, nil
}

func collectionName(topic library.Topic) string {
	return "librarian_" + topic.ID
}

// euclidToSquared converts Qdrant's Euclid score, a plain L2 distance, to the
// squared L2 distance the file backend reports.
func euclidToSquared(score float32) float32 {
	return score * score
}

// Build recreates the topic's collection and upserts all vectors, point id =
// chunk position.
func (b *QdrantBackend) Build(ctx context.Context, topic library.Topic, vectors [][]float32) error {
	logger := contextutil.LoggerFromContext(ctx)
	collection := collectionName(topic)

	exists, err := b.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	if exists {
		if err := b.client.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", collection, err)
		}
	}

	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(b.dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for pos, vec := range vectors {
		if len(vec) != b.dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", pos, len(vec), b.dim)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(pos)),
			Vectors: qdrant.NewVectors(vec...),
		})
	}

	if _, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "built qdrant collection", "collection", collection, "points", len(points))
	return nil
}

// Search queries the topic's collection and returns positions and squared L2
// distances. Qdrant's Euclid score is the plain distance, so it is squared
// here to match the file backend's metric.
func (b *QdrantBackend) Search(ctx context.Context, topic library.Topic, query []float32, k int) ([]int, []float32, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be greater than 0")
	}

	limit := uint64(k)
	scoredPoints, err := b.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName(topic),
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search collection %s: %w", collectionName(topic), err)
	}

	positions := make([]int, 0, len(scoredPoints))
	distances := make([]float32, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		if point.Id == nil {
			continue
		}
		positions = append(positions, int(point.Id.GetNum()))
		distances = append(distances, euclidToSquared(point.Score))
	}
	return positions, distances, nil
}

// Has reports whether the topic's collection exists.
func (b *QdrantBackend) Has(ctx context.Context, topic library.Topic) bool {
	exists, err := b.client.CollectionExists(ctx, collectionName(topic))
	return err == nil && exists
}

// Drop deletes the topic's collection if present.
func (b *QdrantBackend) Drop(ctx context.Context, topic library.Topic) error {
	exists, err := b.client.CollectionExists(ctx, collectionName(topic))
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}
	if err := b.client.DeleteCollection(ctx, collectionName(topic)); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}
