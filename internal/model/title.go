package model

type Title struct {
	Title       string
	Type        string
	Keywords    []string
	Summary     string
	ReadingTime string
	Category    string
}
