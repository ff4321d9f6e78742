// Package pragmalink 提供带连接授权的 P2P 节点
//
// 节点把三个网络原语组合到一个控制循环中：
//
//   - DHT 路由表：节点发现
//   - gossip 发布订阅：主题广播
//   - 身份交换协议：获取远端公钥、地址与代理版本
//
// 每个完成身份交换的远端节点都先交给应用做授权决定，只有被接受的
// 节点才会加入 gossip 显式对等列表与 DHT 路由表。
//
// # 快速开始
//
//	node, err := pragmalink.New(
//	    pragmalink.WithIdentityFile("node.key"),
//	    pragmalink.WithBootstrapPeers("/ip4/10.0.0.1/tcp/1123/p2p/12D3KooW..."),
//	    pragmalink.WithTopics("prices"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 授权决定
//	go func() {
//	    for req := range node.Authorizations() {
//	        req.Respond(allowed(req.Record))
//	    }
//	}()
//
//	// 接收消息
//	go func() {
//	    for msg := range node.Messages().C() {
//	        fmt.Println(msg.Topic, string(msg.Data))
//	    }
//	}()
//
//	// 广播
//	node.Requests() <- types.NewBroadcast("prices", []byte("hello"))
//
//	// 运行直到 ctx 取消或出现致命错误
//	err = node.Run(ctx)
//
// # 文件组织
//
//   - pragmalink.go  - 版本信息
//   - options.go     - 用户配置选项
//   - builder.go     - 节点构建
//   - fx.go          - Fx 模块组装
//   - node.go        - Node 结构与访问器
//   - node_loop.go   - 控制循环
//   - node_events.go - 事件分发与授权结果
//   - errors.go      - 错误定义
package pragmalink
