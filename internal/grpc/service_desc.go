package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	DashboardServiceName = "nps.v1.Dashboard"

	listSheetsMethod    = "/" + DashboardServiceName + "/ListSheets"
	getSheetChartMethod = "/" + DashboardServiceName + "/GetSheetChart"
)

// DashboardServer is the server API of the nps.v1.Dashboard service.
// Messages are protobuf well-known types so no generated code is needed.
type DashboardServer interface {
	// ListSheets returns the quarter sheet names of the latest report.
	ListSheets(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// GetSheetChart returns labels, totals and weighted scores of one quarter sheet.
	GetSheetChart(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&dashboardServiceDesc, srv)
}

func listSheetsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).ListSheets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listSheetsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).ListSheets(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getSheetChartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).GetSheetChart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSheetChartMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).GetSheetChart(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSheets", Handler: listSheetsHandler},
		{MethodName: "GetSheetChart", Handler: getSheetChartHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// DashboardClient calls the nps.v1.Dashboard service.
type DashboardClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardClient(cc grpc.ClientConnInterface) *DashboardClient {
	return &DashboardClient{cc: cc}
}

func (c *DashboardClient) ListSheets(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, listSheetsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

func (c *DashboardClient) GetSheetChart(ctx context.Context, sheet string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getSheetChartMethod, wrapperspb.String(sheet), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
