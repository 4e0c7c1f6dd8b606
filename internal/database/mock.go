package database

import (
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockRepository) ListActiveRooms() ([]Room, error) {
	args := m.Called()
	return args.Get(0).([]Room), args.Error(1)
}

func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockRepository) GetRoomMessages(roomId int) ([]Message, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) CloseRoom(roomId int, summary string) (Summary, error) {
	args := m.Called(roomId, summary)
	return args.Get(0).(Summary), args.Error(1)
}

func (m *MockRepository) ListSummaries() ([]SummaryListing, error) {
	args := m.Called()
	return args.Get(0).([]SummaryListing), args.Error(1)
}

func (m *MockRepository) CreatePaper(params CreatePaperParams) (Paper, error) {
	args := m.Called(params)
	return args.Get(0).(Paper), args.Error(1)
}

func (m *MockRepository) ListPapers(semester int) ([]Paper, error) {
	args := m.Called(semester)
	return args.Get(0).([]Paper), args.Error(1)
}
