package domain

import (
	"testing"
	"time"
)

func TestAverageRating(t *testing.T) {
	book := Book{Reviews: []Review{
		{Rating: 5, Date: time.Now()},
		{Rating: 5, Date: time.Now()},
		{Rating: 4, Date: time.Now()},
	}}
	if got := book.AverageRating(); got != 4.7 {
		t.Fatalf("average of [5,5,4] = %v, want 4.7", got)
	}
}

func TestAverageRatingEmpty(t *testing.T) {
	if got := (Book{}).AverageRating(); got != 0 {
		t.Fatalf("average of no reviews = %v, want 0", got)
	}
}

func TestAverageRatingSingle(t *testing.T) {
	book := Book{Reviews: []Review{{Rating: 3}}}
	if got := book.AverageRating(); got != 3 {
		t.Fatalf("average of [3] = %v, want 3", got)
	}
}
