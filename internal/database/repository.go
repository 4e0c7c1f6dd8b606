package database

type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	ListActiveRooms() ([]Room, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetRoomMessages(roomId int) ([]Message, error)
	CloseRoom(roomId int, summary string) (Summary, error)
	ListSummaries() ([]SummaryListing, error)
	CreatePaper(params CreatePaperParams) (Paper, error)
	// ListPapers returns papers for one semester, or every semester
	// when semester is zero, newest uploads first.
	ListPapers(semester int) ([]Paper, error)
}
