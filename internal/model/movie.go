// Package model はドメインモデルを定義する。
package model

import "time"

// Movie は映画カタログの1作品を表す。
type Movie struct {
	ID          string
	Title       string
	Description string
	Genre       Genre
	Director    Director
	Actors      []string
	ImagePath   string
	Featured    bool
}

// Genre は作品のジャンル。
type Genre struct {
	Name        string
	Description string
}

// Director は作品の監督。
type Director struct {
	Name  string
	Bio   string
	Birth *time.Time
	Death *time.Time
}
