package subscriber

import (
	"context"

	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// SendNotification pushes a Notify response to the client and tracks it as
// pending until the client's ConfirmNotification acknowledges the same id.
func (c *Connection) SendNotification(ctx context.Context, id uint32, message string) error {
	c.pendingMu.Lock()
	c.pendingNotify[id] = message
	c.pendingMu.Unlock()

	buf := wire.NewBuffer(4 + len(message))
	buf.WriteUint32(id)
	buf.WriteRawBytes([]byte(message))
	if err := c.cmd.WriteResponse(ctx, wire.ResponseNotify, 0, buf.Bytes()); err != nil {
		return err
	}
	c.bytesSent.Add(int64(buf.Len()))
	return nil
}

// SendBufferBlock pushes a BufferBlock response and tracks it as pending
// until the client's ConfirmBufferBlock acknowledges the same sequence
// number.
func (c *Connection) SendBufferBlock(ctx context.Context, sequence uint32, block []byte) error {
	c.pendingMu.Lock()
	c.pendingBuffer[sequence] = block
	c.pendingMu.Unlock()

	buf := wire.NewBuffer(4 + len(block))
	buf.WriteUint32(sequence)
	buf.WriteRawBytes(block)
	if err := c.cmd.WriteResponse(ctx, wire.ResponseBufferBlock, 0, buf.Bytes()); err != nil {
		return err
	}
	c.bytesSent.Add(int64(buf.Len()))
	return nil
}

func (c *Connection) clearPendingNotification(id uint32) {
	c.pendingMu.Lock()
	delete(c.pendingNotify, id)
	c.pendingMu.Unlock()
}

func (c *Connection) clearPendingBufferBlock(sequence uint32) {
	c.pendingMu.Lock()
	delete(c.pendingBuffer, sequence)
	c.pendingMu.Unlock()
}

// PendingNotifications and PendingBufferBlocks report counts of
// unacknowledged entries, exposed for the publisher's metrics.
func (c *Connection) PendingNotifications() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pendingNotify)
}

func (c *Connection) PendingBufferBlocks() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pendingBuffer)
}
