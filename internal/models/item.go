package models

// Item is a catalog entry ranked by community votes
type Item struct {
	ID           string
	Name         string
	Keyword      string
	VoteCount    int
	AssignedRank int // purchased rank, 0 when the item holds none
}
