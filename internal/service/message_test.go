package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/internal/transport"
)

func TestMessageLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	msgs := &MessageService{Repo: f.repo, Now: clock}
	stranger := f.addUser(t, "stranger@example.com", models.RoleCustomer)

	m, err := msgs.Create(ctx, f.customer, transport.CreateMessageRequest{
		Recipient: f.admin.ID, Subject: "Where is my parcel?", Content: "It has been a week.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageUnread, m.Status)
	assert.Equal(t, models.MessageGeneral, m.Type)

	got, err := msgs.Get(ctx, f.customer, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageUnread, got.Status, "sender viewing does not mark read")

	_, err = msgs.Get(ctx, stranger, m.ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err = msgs.Get(ctx, f.admin, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageRead, got.Status)
	require.NotNil(t, got.ReadAt)

	_, err = msgs.Create(ctx, stranger, transport.CreateMessageRequest{
		Recipient: f.customer.ID, Subject: "Re", Content: "me too", ParentMessage: &m.ID,
	})
	require.ErrorIs(t, err, ErrForbidden)

	reply, err := msgs.Create(ctx, f.admin, transport.CreateMessageRequest{
		Recipient: f.customer.ID, Subject: "Re: parcel", Content: "Shipped today.", ParentMessage: &m.ID,
	})
	require.NoError(t, err)
	_, err = msgs.Create(ctx, f.customer, transport.CreateMessageRequest{
		Recipient: f.admin.ID, Subject: "Re: Re", Content: "Thanks", ParentMessage: &reply.ID,
	})
	require.NoError(t, err)

	thread, err := msgs.Get(ctx, f.customer, m.ID)
	require.NoError(t, err)
	require.Len(t, thread.Replies, 1)

	_, err = msgs.Update(ctx, f.admin, m.ID, transport.UpdateMessageRequest{Subject: ptr("edited")})
	require.NoError(t, err, "staff may edit")
	_, err = msgs.Update(ctx, stranger, m.ID, transport.UpdateMessageRequest{Subject: ptr("hijack")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = msgs.Archive(ctx, f.customer, reply.ID)
	require.NoError(t, err)
	archived, err := f.repo.GetMessage(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageArchived, archived.Status)

	_, err = msgs.Delete(ctx, stranger, m.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = msgs.Delete(ctx, f.customer, m.ID)
	require.NoError(t, err)

	all, pg, err := msgs.ListAll(ctx, transport.MessageQuery{})
	require.NoError(t, err)
	assert.Empty(t, all, "deleting the root removes the whole thread")
	assert.EqualValues(t, 0, pg.Total)
}

func TestMessageCreate_References(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	msgs := &MessageService{Repo: f.repo, Now: clock}
	o, _ := placeOne(t, f, 1)
	stranger := f.addUser(t, "stranger@example.com", models.RoleCustomer)

	_, err := msgs.Create(ctx, stranger, transport.CreateMessageRequest{
		Recipient: f.admin.ID, Subject: "s", Content: "c", RelatedOrder: &o.ID,
	})
	require.ErrorIs(t, err, ErrForbidden)

	m, err := msgs.Create(ctx, f.customer, transport.CreateMessageRequest{
		Recipient: f.admin.ID, Subject: "s", Content: "c", RelatedOrder: &o.ID, Type: "order", Priority: "high",
		Attachments: []transport.AttachmentRequest{{Filename: "receipt.pdf", URL: "https://cdn.example.com/r.pdf"}},
	})
	require.NoError(t, err)
	stored, err := f.repo.GetMessage(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, stored.Attachments, 1)
	assert.Equal(t, "receipt.pdf", stored.Attachments[0].Filename)

	mine, _, err := msgs.List(ctx, f.customer, transport.MessageQuery{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, _, err := msgs.List(ctx, stranger, transport.MessageQuery{})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = msgs.Create(ctx, f.customer, transport.CreateMessageRequest{
		Recipient: stranger.ID, Subject: "s", Content: "c", Priority: "urgent",
	})
	require.ErrorIs(t, err, ErrValidation)
}
