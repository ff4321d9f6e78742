// Package identity 实现节点身份管理
//
// 本包提供：
//   - 密钥对管理：Ed25519 生成、从配置解码、密钥文件加载/持久化
//   - 节点 ID 派生：libp2p peer.ID
//   - 代理版本字符串：/pragma-node/<版本>/<证书令牌|uncertified>
//   - 证书：权威机构为节点 peer ID 签发，节点联署后作为令牌公布；
//     远端用节点公钥与权威公钥校验
//
// # 快速开始
//
//	priv, _ := identity.Generate()
//	id, _ := identity.New(priv)
//
//	issued, _ := identity.IssueCertificate(authorityKey, []byte("member-7"), id.ID())
//	token, _ := id.SignCertificate([]byte(issued))
//	agent := identity.AgentVersion(token)
//
//	material, err := identity.VerifyCertificate(id.PublicKey(), token, authorityKey.GetPublic())
//
// # Fx 模块
//
//	app := fx.New(
//	    identity.Module(),
//	    fx.Invoke(func(id *identity.Identity) {
//	        fmt.Println(id.ID())
//	    }),
//	)
package identity
