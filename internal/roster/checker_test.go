package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"musicclub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rows []Row
	err  error
}

func (f *fakeSource) Rows(ctx context.Context) ([]Row, error) {
	return f.rows, f.err
}

type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) GetByStudentNumber(ctx context.Context, studentNumber string) (*domain.CommunityMember, error) {
	args := m.Called(ctx, studentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommunityMember), args.Error(1)
}

func (m *MockMemberRepo) Upsert(ctx context.Context, member *domain.CommunityMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func TestSourceChecker_CheckStudentNumber(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{rows: []Row{
		{Line: 2, StudentNumber: "201912345", FullName: "Ada Lovelace"},
		{Line: 3, StudentNumber: "202011111", FullName: "Alan Turing"},
	}}

	t.Run("Found", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("Upsert", ctx, mock.MatchedBy(func(m *domain.CommunityMember) bool {
			return m.StudentNumber == "202011111" && m.Source == domain.MemberSourceRoster
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.CommunityMember).ID = "CM1"
		}).Return(nil).Once()

		res, err := NewSourceChecker(source, members).CheckStudentNumber(ctx, " 202011111 ")
		require.NoError(t, err)
		assert.True(t, res.Found())
		assert.Equal(t, "CM1", *res.MatchedMemberRef)
		members.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("GetByStudentNumber", ctx, "199900000").Return(nil, nil).Once()

		res, err := NewSourceChecker(source, members).CheckStudentNumber(ctx, "199900000")
		require.NoError(t, err)
		assert.Equal(t, domain.RosterCheckNotFound, res.Status)
		assert.Nil(t, res.MatchedMemberRef)
		members.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		members.AssertExpectations(t)
	})

	t.Run("ManualMemberMatches", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("GetByStudentNumber", ctx, "199900000").
			Return(&domain.CommunityMember{ID: "CM9", StudentNumber: "199900000", Source: domain.MemberSourceManual}, nil).Once()

		res, err := NewSourceChecker(source, members).CheckStudentNumber(ctx, "199900000")
		require.NoError(t, err)
		assert.True(t, res.Found())
		assert.Equal(t, "CM9", *res.MatchedMemberRef)
		members.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("MemberLookupFailureIsIndeterminate", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("GetByStudentNumber", ctx, "199900000").Return(nil, errors.New("connection reset")).Once()

		res, err := NewSourceChecker(source, members).CheckStudentNumber(ctx, "199900000")
		assert.Equal(t, domain.RosterCheckError, res.Status)
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("SourceDownImportedMemberMatches", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("GetByStudentNumber", ctx, "201912345").
			Return(&domain.CommunityMember{ID: "CM1", StudentNumber: "201912345", Source: domain.MemberSourceRoster}, nil).Once()
		broken := &fakeSource{err: errors.New("503 backend error")}

		res, err := NewSourceChecker(broken, members).CheckStudentNumber(ctx, "201912345")
		require.NoError(t, err)
		assert.Equal(t, domain.RosterCheckFound, res.Status)
		assert.Equal(t, "CM1", *res.MatchedMemberRef)
		members.AssertExpectations(t)
	})

	t.Run("SourceDownUnknownMemberIsIndeterminate", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("GetByStudentNumber", ctx, "201912345").Return(nil, nil).Once()
		broken := &fakeSource{err: errors.New("403 permission denied")}

		res, err := NewSourceChecker(broken, members).CheckStudentNumber(ctx, "201912345")
		assert.Equal(t, domain.RosterCheckError, res.Status)
		assert.Nil(t, res.MatchedMemberRef)
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})

	t.Run("MemberWriteFailureIsIndeterminate", func(t *testing.T) {
		members := new(MockMemberRepo)
		members.On("Upsert", ctx, mock.Anything).Return(errors.New("connection reset")).Once()

		res, err := NewSourceChecker(source, members).CheckStudentNumber(ctx, "201912345")
		assert.Equal(t, domain.RosterCheckError, res.Status)
		assert.Error(t, err)
	})
}

type blockingChecker struct {
	release chan struct{}
}

func (b *blockingChecker) CheckStudentNumber(ctx context.Context, studentNumber string) (Result, error) {
	<-b.release
	ref := "late"
	return Result{Status: domain.RosterCheckFound, MatchedMemberRef: &ref}, nil
}

type staticChecker struct {
	res Result
	err error
}

func (s staticChecker) CheckStudentNumber(ctx context.Context, studentNumber string) (Result, error) {
	return s.res, s.err
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	t.Run("SlowLookupBecomesError", func(t *testing.T) {
		slow := &blockingChecker{release: make(chan struct{})}
		defer close(slow.release)

		start := time.Now()
		res, err := WithTimeout(slow, 20*time.Millisecond).CheckStudentNumber(ctx, "201912345")
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, domain.RosterCheckError, res.Status)
		assert.Nil(t, res.MatchedMemberRef)
		assert.ErrorIs(t, err, domain.ErrExternalService)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("PassesResultThrough", func(t *testing.T) {
		ref := "CM1"
		inner := staticChecker{res: Result{Status: domain.RosterCheckFound, MatchedMemberRef: &ref}}

		res, err := WithTimeout(inner, time.Second).CheckStudentNumber(ctx, "201912345")
		require.NoError(t, err)
		assert.True(t, res.Found())
	})

	t.Run("InnerErrorNormalized", func(t *testing.T) {
		inner := staticChecker{res: Result{Status: domain.RosterCheckFound}, err: errors.New("boom")}

		res, err := WithTimeout(inner, time.Second).CheckStudentNumber(ctx, "201912345")
		assert.Equal(t, domain.RosterCheckError, res.Status)
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{rows: []Row{
		{Line: 2, StudentNumber: "1"},
		{Line: 3, StudentNumber: "2"},
		{Line: 4, StudentNumber: "3"},
	}}
	members := new(MockMemberRepo)
	members.On("Upsert", ctx, mock.MatchedBy(func(m *domain.CommunityMember) bool { return m.StudentNumber == "2" })).
		Return(errors.New("duplicate")).Once()
	members.On("Upsert", ctx, mock.Anything).Return(nil).Twice()

	n, err := NewImporter(source, members).Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	members.AssertExpectations(t)

	_, err = NewImporter(&fakeSource{err: errors.New("offline")}, members).Import(ctx)
	assert.ErrorIs(t, err, domain.ErrExternalService)
}
