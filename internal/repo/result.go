package repo

// UpdateResult is the write acknowledgement returned to web clients.
type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

type InsertResult struct {
	Acknowledged bool    `json:"acknowledged"`
	InsertedID   *string `json:"insertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

func Inserted(id string) InsertResult {
	return InsertResult{Acknowledged: true, InsertedID: &id}
}
