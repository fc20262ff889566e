package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "filmrate.v1.FilmRateService"

// FilmRateServer is the server API for the FilmRate service.
// Every method takes and returns a structpb.Struct.
type FilmRateServer interface {
	CreatePerson(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPerson(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateFilm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetFilm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateFilm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTag(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateReview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateReview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEntity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetFriendship(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetLike(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetVote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Friends(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CommonFriends(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CommonFilms(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Popular(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Usefulness(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TopReviews(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FilmsByDirector(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Feed(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(FilmRateServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FilmRateServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FilmRateServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the FilmRate service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FilmRateServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreatePerson", FilmRateServer.CreatePerson),
		method("GetPerson", FilmRateServer.GetPerson),
		method("CreateFilm", FilmRateServer.CreateFilm),
		method("GetFilm", FilmRateServer.GetFilm),
		method("UpdateFilm", FilmRateServer.UpdateFilm),
		method("CreateTag", FilmRateServer.CreateTag),
		method("CreateReview", FilmRateServer.CreateReview),
		method("GetReview", FilmRateServer.GetReview),
		method("UpdateReview", FilmRateServer.UpdateReview),
		method("DeleteEntity", FilmRateServer.DeleteEntity),
		method("SetFriendship", FilmRateServer.SetFriendship),
		method("SetLike", FilmRateServer.SetLike),
		method("SetVote", FilmRateServer.SetVote),
		method("Friends", FilmRateServer.Friends),
		method("CommonFriends", FilmRateServer.CommonFriends),
		method("CommonFilms", FilmRateServer.CommonFilms),
		method("Popular", FilmRateServer.Popular),
		method("Usefulness", FilmRateServer.Usefulness),
		method("TopReviews", FilmRateServer.TopReviews),
		method("FilmsByDirector", FilmRateServer.FilmsByDirector),
		method("Search", FilmRateServer.Search),
		method("Feed", FilmRateServer.Feed),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filmrate/v1/filmrate.proto",
}

// RegisterFilmRateServer registers srv with the gRPC server
func RegisterFilmRateServer(s grpc.ServiceRegistrar, srv FilmRateServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FilmRateClient calls FilmRate methods by name
type FilmRateClient struct {
	cc grpc.ClientConnInterface
}

// NewFilmRateClient creates a client on an existing connection
func NewFilmRateClient(cc grpc.ClientConnInterface) *FilmRateClient {
	return &FilmRateClient{cc: cc}
}

// Call invokes the named method with the given request fields
func (c *FilmRateClient) Call(ctx context.Context, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
