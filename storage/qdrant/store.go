// Package qdrant implements storage.VectorStore against a Qdrant server over
// gRPC. Each voxdex collection maps to one Qdrant collection named
// "<prefix>_<collection>". Point ids are content hashes of the record id;
// the record id itself travels in the payload.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/storage"
)

const (
	payloadID         = "id"
	payloadDocID      = "doc_id"
	payloadSource     = "source_field"
	payloadModel      = "embedding_model"
	payloadSetVersion = "embedding_set_version"
	payloadCreatedAt  = "created_at"

	scrollPageSize = 256
)

// pointsAPI is the subset of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store is the Qdrant-backed vector store.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	prefix      string
	logger      *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// New connects to Qdrant at the given gRPC address.
func New(addr, prefix string) (storage.VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial qdrant %s: %w", core.ErrVectorStoreUnavailable, addr, err)
	}
	s := newStore(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), prefix)
	s.conn = conn
	return s, nil
}

func newStore(points pointsAPI, collections collectionsAPI, prefix string) *Store {
	return &Store{
		points:      points,
		collections: collections,
		prefix:      prefix,
		logger:      slog.Default().With("component", "qdrant"),
	}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) name(collection core.CollectionName) string {
	if s.prefix == "" {
		return string(collection)
	}
	return s.prefix + "_" + string(collection)
}

// wrap marks transport failures as ErrVectorStoreUnavailable.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Unknown:
		return fmt.Errorf("%w: qdrant %s: %w", core.ErrVectorStoreUnavailable, op, err)
	}
	return fmt.Errorf("qdrant %s: %w", op, err)
}

func (s *Store) exists(ctx context.Context, name string) (bool, error) {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, wrap("list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ensure(ctx context.Context, name string, dims int) error {
	ok, err := s.exists(ctx, name)
	if err != nil || ok {
		return err
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return wrap("create collection "+name, err)
	}
	s.logger.Info("created collection", "collection", name, "dims", dims)
	return nil
}

// Truncate drops the Qdrant collection. It is recreated on the next upsert.
func (s *Store) Truncate(ctx context.Context, collection core.CollectionName) error {
	name := s.name(collection)
	ok, err := s.exists(ctx, name)
	if err != nil || !ok {
		return err
	}
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		return wrap("delete collection "+name, err)
	}
	return nil
}

// Upsert writes records, creating the collection sized to the first vector.
func (s *Store) Upsert(ctx context.Context, collection core.CollectionName, records ...core.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	name := s.name(collection)
	if err := s.ensure(ctx, name, len(records[0].Vector)); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", storage.ErrInvalidQuery)
		}
		points[i] = &pb.PointStruct{
			Id: pointID(r.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				payloadID:         stringValue(r.ID),
				payloadDocID:      stringValue(r.DocID),
				payloadSource:     stringValue(string(r.SourceField)),
				payloadModel:      stringValue(r.EmbeddingModel),
				payloadSetVersion: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(r.EmbeddingSetVersion)}},
				payloadCreatedAt:  stringValue(r.CreatedAt.UTC().Format(time.RFC3339Nano)),
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         points,
	})
	return wrap(fmt.Sprintf("upsert %d points", len(records)), err)
}

// Query runs a k-NN search. A missing collection yields no hits.
func (s *Store) Query(ctx context.Context, collection core.CollectionName, vector []float32, topK int, filter storage.QueryFilter) ([]core.SearchHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", storage.ErrInvalidQuery)
	}
	name := s.name(collection)
	ok, err := s.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []core.SearchHit{}, nil
	}

	req := &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filter.ExcludeDocIDs) > 0 {
		mustNot := make([]*pb.Condition, len(filter.ExcludeDocIDs))
		for i, id := range filter.ExcludeDocIDs {
			mustNot[i] = fieldMatch(payloadDocID, id)
		}
		req.Filter = &pb.Filter{MustNot: mustNot}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, wrap("search "+name, err)
	}
	hits := make([]core.SearchHit, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		p := r.GetPayload()
		hits = append(hits, core.SearchHit{
			ChunkID:      p[payloadID].GetStringValue(),
			DocID:        p[payloadDocID].GetStringValue(),
			Score:        r.GetScore(),
			VectorSource: collection,
		})
	}
	return hits, nil
}

// Get retrieves a record by id.
func (s *Store) Get(ctx context.Context, collection core.CollectionName, id string) (*core.EmbeddingRecord, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.name(collection),
		Ids:            []*pb.PointId{pointID(id)},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, storage.ErrNotFound
		}
		return nil, wrap("get "+id, err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, storage.ErrNotFound
	}
	pt := resp.GetResult()[0]
	p := pt.GetPayload()
	rec := &core.EmbeddingRecord{
		ID:                  p[payloadID].GetStringValue(),
		DocID:               p[payloadDocID].GetStringValue(),
		Vector:              pt.GetVectors().GetVector().GetData(),
		SourceField:         core.SourceField(p[payloadSource].GetStringValue()),
		EmbeddingModel:      p[payloadModel].GetStringValue(),
		EmbeddingSetVersion: int(p[payloadSetVersion].GetIntegerValue()),
	}
	if ts, err := time.Parse(time.RFC3339Nano, p[payloadCreatedAt].GetStringValue()); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

// DocIDs scrolls the collection and returns the distinct doc ids.
func (s *Store) DocIDs(ctx context.Context, collection core.CollectionName) ([]string, error) {
	name := s.name(collection)
	ok, err := s.exists(ctx, name)
	if err != nil || !ok {
		return nil, err
	}

	seen := map[string]bool{}
	limit := uint32(scrollPageSize)
	var offset *pb.PointId
	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: name,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Include{
				Include: &pb.PayloadIncludeSelector{Fields: []string{payloadDocID}},
			}},
		})
		if err != nil {
			return nil, wrap("scroll "+name, err)
		}
		for _, pt := range resp.GetResult() {
			seen[pt.GetPayload()[payloadDocID].GetStringValue()] = true
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Count returns the exact number of points in a collection.
func (s *Store) Count(ctx context.Context, collection core.CollectionName) (int, error) {
	name := s.name(collection)
	ok, err := s.exists(ctx, name)
	if err != nil || !ok {
		return 0, err
	}
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: name, Exact: &exact})
	if err != nil {
		return 0, wrap("count "+name, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func pointID(id string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(core.IDFromContent(id))}}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
