// Package dbcmd is the runtime contract shared by descriptor types and the
// code generated for them by dbcmd-gen.
//
// A descriptor is a struct whose doc comment carries a //dbcmd:command
// directive and which embeds one result contract marker:
//
//	//dbcmd:command proc=dbo.GetUsersByTenant case=snake
//	type GetUsersByTenant struct {
//		dbcmd.Query[[]User]
//
//		TenantID int64
//		Region   string `param:"region_code"`
//	}
//
// Running dbcmd-gen (usually through go generate) adds a Params method that
// implements ParamMapper and a HandleGetUsersByTenant function that opens a
// connection from a Source, binds the parameters, executes the statement and
// scans the declared result.
//
// The execution helpers in this package (Exec, ExecAffected, QueryScalar,
// QueryOne, QueryAll) are what generated handlers call; they are exported so
// hand-written code can follow the same conventions.
package dbcmd
