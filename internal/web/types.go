package web

type PropItem struct {
	Name        string
	Description string
	Category    string
	ImageURL    string
}

type HomeData struct {
	Title          string
	AccessRequired bool
	Code           string
	VotingState    string
	Props          []PropItem
}

type TriviaData struct {
	JoinCode       string
	AccessRequired bool
}

type VotingData struct {
	State          string
	AccessRequired bool
	MaxPhotoMB     int64
}

type GuestbookData struct {
	AccessRequired bool
	MaxVideoMB     int64
}
