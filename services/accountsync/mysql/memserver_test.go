package mysql

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	"github.com/dolthub/go-mysql-server/server"
	"github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"
)

// memoryServer is a temporary in-memory MySQL server carrying a minimal
// mysql.user catalog, used to exercise the adapter over a real wire
// connection.
type memoryServer struct {
	port     int
	engine   *sqle.Engine
	provider *memory.DbProvider
	server   *server.Server
	cancel   context.CancelFunc
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// startMemoryServer boots the in-memory server and polls until it accepts
// connections.
func startMemoryServer(t *testing.T) *memoryServer {
	t.Helper()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	mysqlDB := memory.NewDatabase("mysql")
	provider := memory.NewDBProvider(mysqlDB)
	engine := sqle.NewDefault(provider)

	userSchema := sql.NewPrimaryKeySchema(sql.Schema{
		{Name: "host", Type: types.Text, Source: "user", Nullable: false, PrimaryKey: true},
		{Name: "user", Type: types.Text, Source: "user", Nullable: false, PrimaryKey: true},
		{Name: "account_locked", Type: types.Text, Source: "user"},
		{Name: "password_expired", Type: types.Text, Source: "user"},
		{Name: "plugin", Type: types.Text, Source: "user"},
		{Name: "Super_priv", Type: types.Text, Source: "user"},
	})
	mysqlDB.AddTable("user", memory.NewTable(mysqlDB.Database(), "user", userSchema, mysqlDB.GetForeignKeyCollection()))

	config := server.Config{
		Protocol: "tcp",
		Address:  fmt.Sprintf("localhost:%d", port),
	}
	s, err := server.NewServer(config, engine, sql.NewContext, memory.NewSessionBuilder(provider), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = s.Start()
	}()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("server failed to start within timeout")
		}
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	ms := &memoryServer{port: port, engine: engine, provider: provider, server: s, cancel: cancel}
	t.Cleanup(ms.close)
	return ms
}

func (m *memoryServer) close() {
	m.cancel()
	_ = m.server.Close()
}

// exec runs one statement directly through the engine, bypassing the wire.
func (m *memoryServer) exec(t *testing.T, stmt string) {
	t.Helper()

	session := memory.NewSession(sql.NewBaseSession(), m.provider)
	ctx := sql.NewContext(context.Background(), sql.WithSession(session))
	ctx.SetCurrentDatabase("mysql")

	_, iter, _, err := m.engine.Query(ctx, stmt)
	if err != nil {
		t.Fatalf("failed to execute %q: %v", stmt, err)
	}
	for {
		if _, err := iter.Next(ctx); err != nil {
			break
		}
	}
	_ = iter.Close(ctx)
}

func (m *memoryServer) seedUser(t *testing.T, user, host, locked, expired, plugin, super string) {
	t.Helper()
	m.exec(t, fmt.Sprintf(
		"INSERT INTO mysql.user (host, user, account_locked, password_expired, plugin, Super_priv) "+
			"VALUES ('%s', '%s', '%s', '%s', '%s', '%s')",
		host, user, locked, expired, plugin, super))
}

// dsn returns the client connection string. Client-side parameter
// interpolation avoids server-side prepared statements, which the in-memory
// server does not fully support.
func (m *memoryServer) dsn() string {
	return fmt.Sprintf("root:@tcp(localhost:%d)/mysql?interpolateParams=true", m.port)
}
